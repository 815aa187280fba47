// Package customer serves customer profiles. Routes are keyed by the user id
// and each customer may only reach their own profile; admins reach all.
package customer

import (
	"strings"

	"complaintdesk/internal/account"
	"complaintdesk/internal/apperr"
	"complaintdesk/internal/audit"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/notify"
	"complaintdesk/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const notFoundMsg = "Customer profile not found"

type Response struct {
	ID          uuid.UUID        `json:"id"`
	ECardHolder bool             `json:"eCardHolder"`
	User        account.UserView `json:"user"`
	CreatedAt   string           `json:"createdAt"`
}

type RegisterRequest struct {
	User        account.UserInput `json:"user"`
	ECardHolder bool              `json:"eCardHolder"`
}

type UpdateRequest struct {
	FullName    *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Phone       *string `json:"phoneNo" validate:"omitempty,phone"`
	ECardHolder *bool   `json:"eCardHolder"`
}

type ECardRequest struct {
	ECardHolder *bool `json:"eCardHolder" validate:"required"`
}

func toResponse(c models.Customer) Response {
	return Response{
		ID:          c.ID,
		ECardHolder: c.ECardHolder,
		User:        account.NewUserView(c.User),
		CreatedAt:   c.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ownedUserID parses :id and checks the caller may act on it.
func ownedUserID(c *fiber.Ctx) (uuid.UUID, error) {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid customer ID format", apperr.Detail{Field: "id", Message: "Invalid UUID format"})
	}
	if err := auth.AuthorizeResourceOwnership(p, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func loadByUser(tx *gorm.DB, userID uuid.UUID) (models.Customer, error) {
	var cust models.Customer
	if err := tx.Preload("User").Where("user_id = ?", userID).First(&cust).Error; err != nil {
		return cust, apperr.FromDB(err, notFoundMsg, "")
	}
	return cust, nil
}

func RegisterHandler(db *gorm.DB, notifier notify.Notifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		user, cust, err := account.RegisterCustomer(c.UserContext(), db, body.User, body.ECardHolder)
		if err != nil {
			return err
		}
		notifier.Welcome(*user)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":  "Customer registered successfully",
			"customer": toResponse(*cust),
		})
	}
}

func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := ownedUserID(c)
		if err != nil {
			return err
		}
		cust, err := loadByUser(db.WithContext(c.UserContext()), userID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"customer": toResponse(cust)})
	}
}

func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := ownedUserID(c)
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var cust models.Customer
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if _, err := loadByUser(tx, userID); err != nil {
				return err
			}
			userUpdates := map[string]any{}
			if body.FullName != nil {
				userUpdates["full_name"] = strings.TrimSpace(*body.FullName)
			}
			if body.Phone != nil {
				userUpdates["phone"] = strings.TrimSpace(*body.Phone)
			}
			if len(userUpdates) > 0 {
				if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(userUpdates).Error; err != nil {
					return apperr.Persistence("update customer user", err)
				}
			}
			if body.ECardHolder != nil {
				if err := setECard(tx, userID, *body.ECardHolder); err != nil {
					return err
				}
			}
			cust, err = loadByUser(tx, userID)
			return err
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message":  "Customer profile updated successfully",
			"customer": toResponse(cust),
		})
	}
}

func ECardHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := ownedUserID(c)
		if err != nil {
			return err
		}
		var body ECardRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var cust models.Customer
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if _, err := loadByUser(tx, userID); err != nil {
				return err
			}
			if err := setECard(tx, userID, *body.ECardHolder); err != nil {
				return err
			}
			cust, err = loadByUser(tx, userID)
			return err
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message":  "E-card status updated successfully",
			"customer": toResponse(cust),
		})
	}
}

func setECard(tx *gorm.DB, userID uuid.UUID, holder bool) error {
	err := tx.Model(&models.Customer{}).Where("user_id = ?", userID).Update("e_card_holder", holder).Error
	if err != nil {
		return apperr.Persistence("update e-card", err)
	}
	return nil
}

func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.Customer
		if err := db.WithContext(c.UserContext()).Preload("User").Order("created_at DESC").Find(&list).Error; err != nil {
			return apperr.Persistence("list customers", err)
		}
		res := make([]Response, 0, len(list))
		for _, cust := range list {
			res = append(res, toResponse(cust))
		}
		return c.JSON(fiber.Map{"count": len(res), "customers": res})
	}
}

// DeleteHandler removes the profile and its user account.
func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return apperr.Validation("Invalid customer ID format", apperr.Detail{Field: "id", Message: "Invalid UUID format"})
		}

		p := auth.PrincipalFrom(c)
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			cust, err := loadByUser(tx, userID)
			if err != nil {
				return err
			}
			if err := tx.Delete(&cust).Error; err != nil {
				return apperr.Persistence("delete customer", err)
			}
			if err := tx.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
				return apperr.Persistence("delete customer user", err)
			}
			return audit.Write(c.UserContext(), tx, p, audit.Entry{
				EntityType:  audit.EntityCustomer,
				EntityID:    cust.ID.String(),
				Action:      models.AuditActionDelete,
				Description: "Customer " + cust.User.Email + " deleted",
				Before:      toResponse(cust),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Customer deleted successfully"})
	}
}

func Routes(router fiber.Router, db *gorm.DB, authn fiber.Handler, notifier notify.Notifier) {
	admin := auth.RequireRole(models.RoleAdmin)

	g := router.Group("/customers")
	g.Post("/register", RegisterHandler(db, notifier))
	g.Get("/", authn, admin, ListHandler(db))
	g.Get("/:id", authn, GetHandler(db))
	g.Put("/:id", authn, UpdateHandler(db))
	g.Patch("/:id/ecard", authn, ECardHandler(db))
	g.Delete("/:id", authn, admin, DeleteHandler(db))
}
