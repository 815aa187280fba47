package auth

import (
	"errors"
	"time"

	"complaintdesk/internal/account"
	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"
	"complaintdesk/internal/notify"
	"complaintdesk/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	FullName    string `json:"fullName" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Phone       string `json:"phoneNo" validate:"required,phone"`
	ECardHolder bool   `json:"eCardHolder"`
}

func (r RegisterRequest) userInput() account.UserInput {
	return account.UserInput{FullName: r.FullName, Email: r.Email, Password: r.Password, Phone: r.Phone}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	User         account.UserView `json:"user"`
}

// RegisterHandler self-registers a customer and signs them in.
func RegisterHandler(db *gorm.DB, tokens *Tokens, notifier notify.Notifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		user, _, err := account.RegisterCustomer(c.UserContext(), db, body.userInput(), body.ECardHolder)
		if err != nil {
			return err
		}

		pair, err := tokens.Issue(user)
		if err != nil {
			return apperr.Wrap(apperr.KindPersistence, "issue token", err)
		}

		notifier.Welcome(*user)

		return c.Status(fiber.StatusCreated).JSON(sessionResponse{
			Token:        pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			User:         account.NewUserView(*user),
		})
	}
}

func LoginHandler(db *gorm.DB, tokens *Tokens, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		var user models.User
		err := db.WithContext(c.UserContext()).
			Where("email = ?", account.NormalizeEmail(body.Email)).
			First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("login lookup failed", zap.Error(err))
			}
			return apperr.Unauthenticated("Invalid email or password")
		}
		if !account.CheckPassword(user.PasswordHash, body.Password) {
			return apperr.Unauthenticated("Invalid email or password")
		}

		pair, err := tokens.Issue(&user)
		if err != nil {
			return apperr.Wrap(apperr.KindPersistence, "issue token", err)
		}

		view := account.NewUserView(user)
		if user.Role == models.RoleBranchSupervisor {
			var assignment models.BranchSupervisor
			if err := db.WithContext(c.UserContext()).Where("user_id = ?", user.ID).First(&assignment).Error; err == nil {
				view.BranchCode = &assignment.BranchCode
			}
		}

		return c.JSON(sessionResponse{
			Token:        pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			User:         view,
		})
	}
}

// RefreshHandler exchanges a refresh token for a new access token. The user
// must still exist.
func RefreshHandler(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		claims, err := a.tokens.ParseRefresh(body.RefreshToken)
		if err != nil {
			return apperr.Unauthenticated("Invalid refresh token")
		}
		revoked, err := a.revoked.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return apperr.Persistence("check refresh token", err)
		}
		if revoked {
			return apperr.Unauthenticated("Token has been revoked")
		}
		if _, err := a.ResolvePrincipal(c.UserContext(), claims); err != nil {
			return err
		}

		token, err := a.tokens.IssueAccess(claims.UserID)
		if err != nil {
			return apperr.Wrap(apperr.KindPersistence, "issue token", err)
		}
		return c.JSON(fiber.Map{"token": token})
	}
}

// LogoutHandler revokes the presented access token until it would expire,
// and the refresh token too when the body carries one.
func LogoutHandler(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(CtxTokenKey).(*Claims)
		if !ok {
			return apperr.Unauthenticated("Authentication required")
		}

		var body LogoutRequest
		if len(c.Body()) > 0 {
			if err := validation.BindJSON(c, &body); err != nil {
				return err
			}
		}
		revoke := []*Claims{claims}
		if body.RefreshToken != "" {
			refresh, err := a.tokens.ParseRefresh(body.RefreshToken)
			if err != nil || refresh.UserID != claims.UserID {
				return apperr.Unauthenticated("Invalid refresh token")
			}
			revoke = append(revoke, refresh)
		}

		for _, cl := range revoke {
			if err := a.revoked.Revoke(c.UserContext(), cl.ID, time.Until(cl.ExpiresAt.Time)); err != nil {
				return apperr.Persistence("revoke token", err)
			}
		}
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}

func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", p.UserID).Error; err != nil {
			return apperr.FromDB(err, "User not found", "")
		}

		view := account.NewUserView(user)
		view.BranchCode = p.BranchCode
		return c.JSON(view)
	}
}

// Routes mounts /api/auth.
func Routes(router fiber.Router, db *gorm.DB, a *Authenticator, notifier notify.Notifier, log *zap.Logger) {
	g := router.Group("/auth")
	g.Post("/register", RegisterHandler(db, a.tokens, notifier))
	g.Post("/login", LoginHandler(db, a.tokens, log))
	g.Post("/refresh-token", RefreshHandler(a))
	g.Post("/refresh", RefreshHandler(a))
	g.Post("/logout", Middleware(a), LogoutHandler(a))
	g.Get("/me", Middleware(a), MeHandler(db))
}
