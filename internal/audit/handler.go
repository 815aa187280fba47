package audit

import (
	"strconv"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type LogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchCode  *string            `json:"branch_code"`
	UserID      uuid.UUID          `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

// ListHandler serves GET /api/audit-logs?entity_type=&entity_id=&user_id=&branch_code=&limit=.
// Supervisors only see rows of their own branch; branch_code is ignored for them.
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}

		q := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		switch p.Role {
		case models.RoleAdmin:
			if code := c.Query("branch_code"); code != "" {
				q = q.Where("branch_code = ?", code)
			}
		case models.RoleBranchSupervisor:
			if p.BranchCode == nil {
				return apperr.Forbidden("Forbidden: No branch assigned")
			}
			q = q.Where("branch_code = ?", *p.BranchCode)
		default:
			return apperr.Forbidden("Forbidden: Insufficient permissions")
		}

		if v := c.Query("user_id"); v != "" {
			uid, err := uuid.Parse(v)
			if err != nil {
				return apperr.Validation("Invalid user_id", apperr.Detail{Field: "user_id", Message: "Invalid UUID format"})
			}
			q = q.Where("user_id = ?", uid)
		}
		if v := c.Query("entity_type"); v != "" {
			q = q.Where("entity_type = ?", v)
		}
		if v := c.Query("entity_id"); v != "" {
			q = q.Where("entity_id = ?", v)
		}

		limit := defaultLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return apperr.Validation("Invalid limit", apperr.Detail{Field: "limit", Message: "Must be a positive integer"})
			}
			limit = min(n, maxLimit)
		}

		var logs []models.AuditLog
		if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return apperr.Persistence("list audit logs", err)
		}

		resp := make([]LogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, LogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchCode:  l.BranchCode,
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				BeforeData:  l.BeforeData,
				AfterData:   l.AfterData,
			})
		}
		return c.JSON(resp)
	}
}

func Routes(router fiber.Router, db *gorm.DB, authn fiber.Handler) {
	router.Get("/audit-logs", authn,
		auth.RequireRole(models.RoleAdmin, models.RoleBranchSupervisor),
		ListHandler(db))
}
