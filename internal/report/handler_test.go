package report

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func as(p *auth.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p != nil {
			c.Locals(auth.CtxPrincipalKey, p)
		}
		return c.Next()
	}
}

func newReportApp(db *gorm.DB, p *auth.Principal) *fiber.App {
	app := testutil.NewApp()
	Routes(app.Group("/api"), NewService(db, zap.NewNop()), time.UTC, as(p))
	return app
}

func admin() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
}

func supervisor(branch *string) *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: models.RoleBranchSupervisor, BranchCode: branch}
}

const januaryQuery = "?start=2024-01-01&end=2024-01-31"

func TestHandler_InvalidRangePerformsNoReads(t *testing.T) {
	m := testutil.NewMockDB(t)
	app := newReportApp(m.DB, admin())

	for _, q := range []string{"?start=2024-02-01&end=2024-01-01", "?start=yesterday&end=2024-01-01", ""} {
		resp := testutil.Do(t, app, http.MethodGet, "/api/report"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.Status, q)
		assert.Equal(t, "INVALID_RANGE", resp.ErrorCode(), q)
	}
	m.ExpectationsWereMet(t)
}

func TestHandler_AggregationFailureIsGeneric(t *testing.T) {
	m := testutil.NewMockDB(t)
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "complaints"`).WillReturnError(assert.AnError)
	app := newReportApp(m.DB, admin())

	resp := testutil.Do(t, app, http.MethodGet, "/api/report"+januaryQuery, nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "AGGREGATION_FAILURE", resp.ErrorCode())
	assert.NotContains(t, string(resp.Raw), assert.AnError.Error())
	m.ExpectationsWereMet(t)
}

func TestHandler_OverallForAdmin(t *testing.T) {
	f := seedJanuary(t)
	resp := testutil.Do(t, newReportApp(f.db, admin()), http.MethodGet, "/api/report"+januaryQuery, nil, "")

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Raw))
	assert.EqualValues(t, 4, resp.Body["total_complaints"])
	assert.Equal(t, "0.25", resp.Body["anonymous_complaints_ratio"])
	assert.Len(t, resp.Body["top_branches_by_complaints"], 2)
	pending := resp.Body["branch_with_highest_pending"].(map[string]any)
	assert.Equal(t, "BR1", pending["branch_code"])
	assert.EqualValues(t, 2, pending["pending"])
}

func TestHandler_SupervisorIsBranchScoped(t *testing.T) {
	f := seedJanuary(t)
	br1 := "BR1"

	own := testutil.Do(t, newReportApp(f.db, supervisor(&br1)), http.MethodGet, "/api/report"+januaryQuery, nil, "")
	require.Equal(t, http.StatusOK, own.Status)
	assert.Equal(t, "BR1", own.Body["branch_code"])
	assert.NotContains(t, own.Body, "top_branches_by_complaints")

	explicit := testutil.Do(t, newReportApp(f.db, supervisor(&br1)), http.MethodGet, "/api/report"+januaryQuery+"&branchCode=BR1", nil, "")
	assert.Equal(t, http.StatusOK, explicit.Status)

	other := testutil.Do(t, newReportApp(f.db, supervisor(&br1)), http.MethodGet, "/api/report"+januaryQuery+"&branchCode=BR2", nil, "")
	assert.Equal(t, http.StatusForbidden, other.Status)

	unassigned := testutil.Do(t, newReportApp(f.db, supervisor(nil)), http.MethodGet, "/api/report"+januaryQuery, nil, "")
	assert.Equal(t, http.StatusForbidden, unassigned.Status)
}

func TestHandler_RejectsCustomersAndAnonymous(t *testing.T) {
	f := seedJanuary(t)
	customer := &auth.Principal{UserID: uuid.New(), Role: models.RoleCustomer}

	assert.Equal(t, http.StatusForbidden,
		testutil.Do(t, newReportApp(f.db, customer), http.MethodGet, "/api/report"+januaryQuery, nil, "").Status)
	assert.Equal(t, http.StatusUnauthorized,
		testutil.Do(t, newReportApp(f.db, nil), http.MethodGet, "/api/report"+januaryQuery, nil, "").Status)
}

func TestExportHandler_Workbook(t *testing.T) {
	f := seedJanuary(t)
	resp := testutil.Do(t, newReportApp(f.db, admin()), http.MethodGet, "/api/report/export"+januaryQuery, nil, "")
	require.Equal(t, http.StatusOK, resp.Status)

	wb, err := excelize.OpenReader(bytes.NewReader(resp.Raw))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{sheetSummary, sheetBranches, sheetComplainers}, wb.GetSheetList())

	rows, err := wb.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"Total complaints", "4"})
	assert.Contains(t, rows, []string{"Anonymous ratio", "0.25"})

	branches, err := wb.GetRows(sheetBranches)
	require.NoError(t, err)
	assert.Equal(t, []string{"BR1", "Colombo Central", "3"}, branches[1])
}
