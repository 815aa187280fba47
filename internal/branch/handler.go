// Package branch manages the branch directory. Reads are public; mutations
// are admin only and audited.
package branch

import (
	"strings"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/audit"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	notFoundMsg  = "Branch not found"
	duplicateMsg = "Branch with this code already exists"
)

type Response struct {
	ID         uuid.UUID `json:"id"`
	BranchCode string    `json:"branchCode"`
	Name       string    `json:"branchName"`
	Address    string    `json:"address"`
	Phone      string    `json:"phoneNo"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

type CreateRequest struct {
	BranchCode string `json:"branchCode" validate:"required,max=50"`
	Name       string `json:"branchName" validate:"required,max=100"`
	Address    string `json:"address" validate:"required,max=255"`
	Phone      string `json:"phoneNo" validate:"required,phone"`
}

// UpdateRequest changes display fields only; the branch code is immutable.
type UpdateRequest struct {
	Name    *string `json:"branchName" validate:"omitempty,min=1,max=100"`
	Address *string `json:"address" validate:"omitempty,min=1,max=255"`
	Phone   *string `json:"phoneNo" validate:"omitempty,phone"`
}

func toResponse(b models.Branch) Response {
	return Response{
		ID:         b.ID,
		BranchCode: b.BranchCode,
		Name:       b.Name,
		Address:    b.Address,
		Phone:      b.Phone,
		CreatedAt:  b.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:  b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFoundMsg)
	}
	return id, nil
}

func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		b := models.Branch{
			BranchCode: strings.TrimSpace(body.BranchCode),
			Name:       strings.TrimSpace(body.Name),
			Address:    strings.TrimSpace(body.Address),
			Phone:      strings.TrimSpace(body.Phone),
		}

		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Branch{}).Where("branch_code = ?", b.BranchCode).Count(&count).Error; err != nil {
				return apperr.Persistence("check branch code", err)
			}
			if count > 0 {
				return apperr.Conflict(duplicateMsg)
			}
			if err := tx.Create(&b).Error; err != nil {
				return apperr.FromDB(err, "", duplicateMsg)
			}
			return audit.Write(c.UserContext(), tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &b.BranchCode,
				EntityType:  audit.EntityBranch,
				EntityID:    b.ID.String(),
				Action:      models.AuditActionCreate,
				Description: "Branch created: " + b.BranchCode,
				After:       toResponse(b),
			})
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Branch created successfully",
			"branch":  toResponse(b),
		})
	}
}

func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := db.WithContext(c.UserContext()).Order("branch_code ASC").Find(&branches).Error; err != nil {
			return apperr.Persistence("list branches", err)
		}

		res := make([]Response, 0, len(branches))
		for _, b := range branches {
			res = append(res, toResponse(b))
		}
		return c.JSON(fiber.Map{"count": len(res), "branches": res})
	}
}

func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var b models.Branch
		if err := db.WithContext(c.UserContext()).First(&b, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, notFoundMsg, "")
		}
		return c.JSON(fiber.Map{"branch": toResponse(b)})
	}
}

func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var b models.Branch
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&b, "id = ?", id).Error; err != nil {
				return apperr.FromDB(err, notFoundMsg, "")
			}
			before := toResponse(b)

			if body.Name != nil {
				b.Name = strings.TrimSpace(*body.Name)
			}
			if body.Address != nil {
				b.Address = strings.TrimSpace(*body.Address)
			}
			if body.Phone != nil {
				b.Phone = strings.TrimSpace(*body.Phone)
			}
			if err := tx.Save(&b).Error; err != nil {
				return apperr.Persistence("update branch", err)
			}

			return audit.Write(c.UserContext(), tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &b.BranchCode,
				EntityType:  audit.EntityBranch,
				EntityID:    b.ID.String(),
				Action:      models.AuditActionUpdate,
				Description: "Branch updated: " + b.BranchCode,
				Before:      before,
				After:       toResponse(b),
			})
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": "Branch updated successfully",
			"branch":  toResponse(b),
		})
	}
}

func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var b models.Branch
			if err := tx.First(&b, "id = ?", id).Error; err != nil {
				return apperr.FromDB(err, notFoundMsg, "")
			}
			if err := tx.Delete(&b).Error; err != nil {
				return apperr.Persistence("delete branch", err)
			}
			return audit.Write(c.UserContext(), tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &b.BranchCode,
				EntityType:  audit.EntityBranch,
				EntityID:    b.ID.String(),
				Action:      models.AuditActionDelete,
				Description: "Branch deleted: " + b.BranchCode,
				Before:      toResponse(b),
			})
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"message": "Branch deleted successfully"})
	}
}

func Routes(router fiber.Router, db *gorm.DB, authn fiber.Handler) {
	admin := auth.RequireRole(models.RoleAdmin)

	g := router.Group("/branches")
	g.Get("/", ListHandler(db))
	g.Get("/:id", GetHandler(db))
	g.Post("/", authn, admin, CreateHandler(db))
	g.Put("/:id", authn, admin, UpdateHandler(db))
	g.Delete("/:id", authn, admin, DeleteHandler(db))
}
