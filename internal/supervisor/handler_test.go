package supervisor

import (
	"net/http"
	"testing"

	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newApp(db *gorm.DB, p *auth.Principal) *fiber.App {
	app := testutil.NewApp()
	Routes(app.Group("/api"), db, func(c *fiber.Ctx) error {
		c.Locals(auth.CtxPrincipalKey, p)
		return c.Next()
	})
	return app
}

func createBody(email, branch string) map[string]any {
	return map[string]any{
		"branchCode": branch,
		"user": map[string]any{
			"fullName": "Nimal Perera",
			"email":    email,
			"password": "secret123",
			"phoneNo":  "0771234567",
		},
	}
}

func TestSupervisorLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateBranch(t, db, "BR1", "Colombo")
	testutil.CreateBranch(t, db, "BR2", "Kandy")
	app := newApp(db, &auth.Principal{UserID: uuid.New(), Role: models.RoleAdmin})

	created := testutil.Do(t, app, http.MethodPost, "/api/branch-supervisors", createBody("Nimal@Example.com", "BR1"), "")
	require.Equal(t, http.StatusCreated, created.Status, string(created.Raw))
	sup := created.Body["branchSupervisor"].(map[string]any)
	id := sup["id"].(string)
	user := sup["user"].(map[string]any)
	assert.Equal(t, "nimal@example.com", user["email"])
	assert.Equal(t, "branch_supervisor", user["role"])
	assert.Equal(t, "BR1", sup["branchCode"])

	dup := testutil.Do(t, app, http.MethodPost, "/api/branch-supervisors", createBody("nimal@example.com", "BR2"), "")
	assert.Equal(t, http.StatusConflict, dup.Status)

	noBranch := testutil.Do(t, app, http.MethodPost, "/api/branch-supervisors", createBody("other@example.com", "BR9"), "")
	assert.Equal(t, http.StatusBadRequest, noBranch.Status)
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users, "failed create leaves no user behind")

	updated := testutil.Do(t, app, http.MethodPut, "/api/branch-supervisors/"+id, map[string]any{
		"branchCode": "BR2",
		"user":       map[string]any{"fullName": "Nimal P."},
	}, "")
	require.Equal(t, http.StatusOK, updated.Status, string(updated.Raw))
	s := updated.Body["supervisor"].(map[string]any)
	assert.Equal(t, "BR2", s["branchCode"])
	assert.Equal(t, "Nimal P.", s["user"].(map[string]any)["fullName"])

	badBranch := testutil.Do(t, app, http.MethodPut, "/api/branch-supervisors/"+id, map[string]any{"branchCode": "BR9"}, "")
	assert.Equal(t, http.StatusBadRequest, badBranch.Status)

	list := testutil.Do(t, app, http.MethodGet, "/api/branch-supervisors", nil, "")
	assert.EqualValues(t, 1, list.Body["count"])

	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodDelete, "/api/branch-supervisors/"+id, nil, "").Status)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, app, http.MethodGet, "/api/branch-supervisors/"+id, nil, "").Status)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users, "user is deleted with the assignment")

	var audits int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "branch_supervisor").Count(&audits).Error)
	assert.EqualValues(t, 3, audits)
}

func TestSupervisorRoutesAreAdminOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	sup := &auth.Principal{UserID: uuid.New(), Role: models.RoleBranchSupervisor}
	resp := testutil.Do(t, newApp(db, sup), http.MethodGet, "/api/branch-supervisors", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.Status)
}
