package customer

import (
	"net/http"
	"testing"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/notify"
	"complaintdesk/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type welcomeRecorder struct {
	notify.Nop
	welcomed []string
}

func (w *welcomeRecorder) Welcome(u models.User) { w.welcomed = append(w.welcomed, u.Email) }

// newApp injects p as the caller; nil p makes authenticated routes fail.
func newApp(db *gorm.DB, p *auth.Principal, n notify.Notifier) *fiber.App {
	app := testutil.NewApp()
	authn := func(c *fiber.Ctx) error {
		if p == nil {
			return apperr.Unauthenticated("Authentication required")
		}
		c.Locals(auth.CtxPrincipalKey, p)
		return c.Next()
	}
	Routes(app.Group("/api"), db, authn, n)
	return app
}

func principalOf(u *models.User) *auth.Principal {
	return &auth.Principal{UserID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

func TestRegister(t *testing.T) {
	db := testutil.NewTestDB(t)
	rec := &welcomeRecorder{}
	app := newApp(db, nil, rec)

	body := map[string]any{
		"user": map[string]any{
			"fullName": "Kamal Silva",
			"email":    "Kamal@Example.com",
			"password": "secret123",
			"phoneNo":  "0771234567",
		},
		"eCardHolder": true,
	}
	resp := testutil.Do(t, app, http.MethodPost, "/api/customers/register", body, "")
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Raw))
	cust := resp.Body["customer"].(map[string]any)
	assert.Equal(t, true, cust["eCardHolder"])
	assert.Equal(t, "kamal@example.com", cust["user"].(map[string]any)["email"])
	assert.Equal(t, []string{"kamal@example.com"}, rec.welcomed)

	again := testutil.Do(t, app, http.MethodPost, "/api/customers/register", body, "")
	assert.Equal(t, http.StatusConflict, again.Status)

	bad := testutil.Do(t, app, http.MethodPost, "/api/customers/register", map[string]any{"user": map[string]any{"email": "x"}}, "")
	assert.Equal(t, http.StatusBadRequest, bad.Status)
	assert.Equal(t, "VALIDATION_ERROR", bad.ErrorCode())
}

func seedCustomer(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := testutil.CreateUser(t, db, name, models.RoleCustomer)
	require.NoError(t, db.Create(&models.Customer{UserID: u.ID}).Error)
	return u
}

func TestProfileOwnership(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := seedCustomer(t, db, "Alice")
	bob := seedCustomer(t, db, "Bob")
	app := newApp(db, principalOf(alice), notify.Nop{})

	own := testutil.Do(t, app, http.MethodGet, "/api/customers/"+alice.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, own.Status)
	assert.Equal(t, "Alice", own.Body["customer"].(map[string]any)["user"].(map[string]any)["fullName"])

	other := testutil.Do(t, app, http.MethodGet, "/api/customers/"+bob.ID.String(), nil, "")
	assert.Equal(t, http.StatusForbidden, other.Status)

	bad := testutil.Do(t, app, http.MethodGet, "/api/customers/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, bad.Status)

	admin := testutil.CreateUser(t, db, "Root", models.RoleAdmin)
	adminApp := newApp(db, principalOf(admin), notify.Nop{})
	assert.Equal(t, http.StatusOK, testutil.Do(t, adminApp, http.MethodGet, "/api/customers/"+bob.ID.String(), nil, "").Status)
	assert.Equal(t, http.StatusNotFound, testutil.Do(t, adminApp, http.MethodGet, "/api/customers/"+uuid.NewString(), nil, "").Status)
}

func TestUpdateAndECard(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := seedCustomer(t, db, "Alice")
	app := newApp(db, principalOf(alice), notify.Nop{})
	path := "/api/customers/" + alice.ID.String()

	upd := testutil.Do(t, app, http.MethodPut, path, map[string]any{"fullName": "Alice Fernando", "eCardHolder": true}, "")
	require.Equal(t, http.StatusOK, upd.Status, string(upd.Raw))
	cust := upd.Body["customer"].(map[string]any)
	assert.Equal(t, true, cust["eCardHolder"])
	assert.Equal(t, "Alice Fernando", cust["user"].(map[string]any)["fullName"])

	off := testutil.Do(t, app, http.MethodPatch, path+"/ecard", map[string]any{"eCardHolder": false}, "")
	require.Equal(t, http.StatusOK, off.Status)
	assert.Equal(t, false, off.Body["customer"].(map[string]any)["eCardHolder"])

	missing := testutil.Do(t, app, http.MethodPatch, path+"/ecard", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, missing.Status)
}

func TestAdminListAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := seedCustomer(t, db, "Alice")
	seedCustomer(t, db, "Bob")
	admin := testutil.CreateUser(t, db, "Root", models.RoleAdmin)

	customerApp := newApp(db, principalOf(alice), notify.Nop{})
	assert.Equal(t, http.StatusForbidden, testutil.Do(t, customerApp, http.MethodGet, "/api/customers", nil, "").Status)

	app := newApp(db, principalOf(admin), notify.Nop{})
	list := testutil.Do(t, app, http.MethodGet, "/api/customers", nil, "")
	require.Equal(t, http.StatusOK, list.Status)
	assert.EqualValues(t, 2, list.Body["count"])

	del := testutil.Do(t, app, http.MethodDelete, "/api/customers/"+alice.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, del.Status, string(del.Raw))

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&users).Error)
	assert.Zero(t, users)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ?", "customer").First(&entry).Error)
	assert.Equal(t, models.AuditActionDelete, entry.Action)
	assert.Equal(t, admin.ID, entry.UserID)
}
