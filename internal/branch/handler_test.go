package branch

import (
	"net/http"
	"testing"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newApp authenticates every request as p (anonymous when nil).
func newApp(db *gorm.DB, p *auth.Principal) *fiber.App {
	app := testutil.NewApp()
	Routes(app.Group("/api"), db, func(c *fiber.Ctx) error {
		if p == nil {
			return apperr.Unauthenticated("Authentication required")
		}
		c.Locals(auth.CtxPrincipalKey, p)
		return c.Next()
	})
	return app
}

var adminP = &auth.Principal{UserID: uuid.New(), FullName: "Admin", Role: models.RoleAdmin}

func TestBranchCRUD(t *testing.T) {
	db := testutil.NewTestDB(t)
	app := newApp(db, adminP)

	created := testutil.Do(t, app, http.MethodPost, "/api/branches", map[string]any{
		"branchCode": "BR1", "branchName": "Colombo Central", "address": "1 Galle Rd", "phoneNo": "+94 11 234 5678",
	}, "")
	require.Equal(t, http.StatusCreated, created.Status, string(created.Raw))
	id := created.Body["branch"].(map[string]any)["id"].(string)

	dup := testutil.Do(t, app, http.MethodPost, "/api/branches", map[string]any{
		"branchCode": "BR1", "branchName": "Other", "address": "x", "phoneNo": "0112345678",
	}, "")
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, "CONFLICT", dup.ErrorCode())

	updated := testutil.Do(t, app, http.MethodPut, "/api/branches/"+id, map[string]any{
		"branchName": "Colombo Fort", "branchCode": "BR-X",
	}, "")
	require.Equal(t, http.StatusOK, updated.Status)
	b := updated.Body["branch"].(map[string]any)
	assert.Equal(t, "Colombo Fort", b["branchName"])
	assert.Equal(t, "BR1", b["branchCode"], "code is immutable")
	assert.Equal(t, "1 Galle Rd", b["address"])

	got := testutil.Do(t, app, http.MethodGet, "/api/branches/"+id, nil, "")
	require.Equal(t, http.StatusOK, got.Status)

	list := testutil.Do(t, app, http.MethodGet, "/api/branches", nil, "")
	assert.EqualValues(t, 1, list.Body["count"])

	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodDelete, "/api/branches/"+id, nil, "").Status)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, app, http.MethodGet, "/api/branches/"+id, nil, "").Status)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, app, http.MethodDelete, "/api/branches/"+id, nil, "").Status)

	var actions []models.AuditAction
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "branch").Order("id").Pluck("action", &actions).Error)
	assert.Equal(t, []models.AuditAction{models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete}, actions)
}

func TestBranchValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	app := newApp(db, adminP)

	resp := testutil.Do(t, app, http.MethodPost, "/api/branches", map[string]any{"branchCode": "BR1", "phoneNo": "call me"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Status)
	details := resp.Body["error"].(map[string]any)["details"].([]any)
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"branchName", "address", "phoneNo"}, fields)
}

func TestBranchMutationsAreAdminOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateBranch(t, db, "BR1", "Colombo")
	sup := &auth.Principal{UserID: uuid.New(), Role: models.RoleBranchSupervisor}

	body := map[string]any{"branchCode": "BR2", "branchName": "Kandy", "address": "x", "phoneNo": "0812345678"}
	assert.Equal(t, http.StatusForbidden, testutil.Do(t, newApp(db, sup), http.MethodPost, "/api/branches", body, "").Status)

	public := testutil.Do(t, newApp(db, nil), http.MethodGet, "/api/branches", nil, "")
	assert.Equal(t, http.StatusOK, public.Status)
	assert.EqualValues(t, 1, public.Body["count"])
}
