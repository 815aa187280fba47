// Package supervisor lets admins manage branch supervisors: a user with the
// branch_supervisor role plus its single branch assignment.
package supervisor

import (
	"strings"

	"complaintdesk/internal/account"
	"complaintdesk/internal/apperr"
	"complaintdesk/internal/audit"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const notFoundMsg = "Branch supervisor not found"

type Response struct {
	ID         uuid.UUID        `json:"id"`
	BranchCode string           `json:"branchCode"`
	User       account.UserView `json:"user"`
	CreatedAt  string           `json:"createdAt"`
}

type CreateRequest struct {
	BranchCode string            `json:"branchCode" validate:"required,max=50"`
	User       account.UserInput `json:"user"`
}

type UserUpdate struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phoneNo" validate:"omitempty,phone"`
}

type UpdateRequest struct {
	BranchCode *string     `json:"branchCode" validate:"omitempty,min=1,max=50"`
	User       *UserUpdate `json:"user"`
}

func toResponse(s models.BranchSupervisor) Response {
	view := account.NewUserView(s.User)
	view.BranchCode = &s.BranchCode
	return Response{
		ID:         s.ID,
		BranchCode: s.BranchCode,
		User:       view,
		CreatedAt:  s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFoundMsg)
	}
	return id, nil
}

func requireBranch(tx *gorm.DB, code string) error {
	var count int64
	if err := tx.Model(&models.Branch{}).Where("branch_code = ?", code).Count(&count).Error; err != nil {
		return apperr.Persistence("check branch", err)
	}
	if count == 0 {
		return apperr.Validation("Branch not found", apperr.Detail{Field: "branchCode", Message: "Branch not found"})
	}
	return nil
}

func load(tx *gorm.DB, id uuid.UUID) (models.BranchSupervisor, error) {
	var s models.BranchSupervisor
	if err := tx.Preload("User").First(&s, "id = ?", id).Error; err != nil {
		return s, apperr.FromDB(err, notFoundMsg, "")
	}
	return s, nil
}

func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		code := strings.TrimSpace(body.BranchCode)
		ctx := c.UserContext()

		var s models.BranchSupervisor
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := requireBranch(tx, code); err != nil {
				return err
			}
			user, err := account.NewUser(ctx, tx, body.User, models.RoleBranchSupervisor)
			if err != nil {
				return err
			}
			s = models.BranchSupervisor{UserID: user.ID, BranchCode: code}
			if err := tx.Create(&s).Error; err != nil {
				return apperr.FromDB(err, "", "Supervisor is already assigned")
			}
			s.User = *user

			return audit.Write(ctx, tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &s.BranchCode,
				EntityType:  audit.EntitySupervisor,
				EntityID:    s.ID.String(),
				Action:      models.AuditActionCreate,
				Description: "Supervisor " + user.Email + " assigned to " + code,
				After:       toResponse(s),
			})
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":          "Branch supervisor created successfully",
			"branchSupervisor": toResponse(s),
		})
	}
}

func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.BranchSupervisor
		if err := db.WithContext(c.UserContext()).Preload("User").Order("branch_code ASC").Find(&list).Error; err != nil {
			return apperr.Persistence("list supervisors", err)
		}

		res := make([]Response, 0, len(list))
		for _, s := range list {
			res = append(res, toResponse(s))
		}
		return c.JSON(fiber.Map{"count": len(res), "supervisors": res})
	}
}

func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		s, err := load(db.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"supervisor": toResponse(s)})
	}
}

// UpdateHandler reassigns the branch and/or edits the supervisor's name and phone.
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
		ctx := c.UserContext()

		var s models.BranchSupervisor
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			if s, err = load(tx, id); err != nil {
				return err
			}
			before := toResponse(s)

			if body.BranchCode != nil {
				code := strings.TrimSpace(*body.BranchCode)
				if err := requireBranch(tx, code); err != nil {
					return err
				}
				if err := tx.Model(&models.BranchSupervisor{}).Where("id = ?", s.ID).Update("branch_code", code).Error; err != nil {
					return apperr.Persistence("reassign supervisor", err)
				}
			}
			if body.User != nil {
				updates := map[string]any{}
				if body.User.FullName != nil {
					updates["full_name"] = strings.TrimSpace(*body.User.FullName)
				}
				if body.User.Phone != nil {
					updates["phone"] = strings.TrimSpace(*body.User.Phone)
				}
				if len(updates) > 0 {
					if err := tx.Model(&models.User{}).Where("id = ?", s.UserID).Updates(updates).Error; err != nil {
						return apperr.Persistence("update supervisor user", err)
					}
				}
			}

			if s, err = load(tx, id); err != nil {
				return err
			}
			return audit.Write(ctx, tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &s.BranchCode,
				EntityType:  audit.EntitySupervisor,
				EntityID:    s.ID.String(),
				Action:      models.AuditActionUpdate,
				Description: "Supervisor " + s.User.Email + " updated",
				Before:      before,
				After:       toResponse(s),
			})
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message":    "Branch supervisor updated successfully",
			"supervisor": toResponse(s),
		})
	}
}

// DeleteHandler removes the assignment and the supervisor's user account.
func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		ctx := c.UserContext()

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			s, err := load(tx, id)
			if err != nil {
				return err
			}
			if err := tx.Delete(&s).Error; err != nil {
				return apperr.Persistence("delete supervisor", err)
			}
			if err := tx.Delete(&models.User{}, "id = ?", s.UserID).Error; err != nil {
				return apperr.Persistence("delete supervisor user", err)
			}
			return audit.Write(ctx, tx, auth.PrincipalFrom(c), audit.Entry{
				BranchCode:  &s.BranchCode,
				EntityType:  audit.EntitySupervisor,
				EntityID:    s.ID.String(),
				Action:      models.AuditActionDelete,
				Description: "Supervisor " + s.User.Email + " removed",
				Before:      toResponse(s),
			})
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"message": "Branch supervisor deleted successfully"})
	}
}

// Routes mounts /api/branch-supervisors; every route is admin only.
func Routes(router fiber.Router, db *gorm.DB, authn fiber.Handler) {
	g := router.Group("/branch-supervisors", authn, auth.RequireRole(models.RoleAdmin))
	g.Post("/", CreateHandler(db))
	g.Get("/", ListHandler(db))
	g.Get("/:id", GetHandler(db))
	g.Put("/:id", UpdateHandler(db))
	g.Delete("/:id", DeleteHandler(db))
}
