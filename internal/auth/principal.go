package auth

import (
	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	CtxPrincipalKey = "principal"
	CtxTokenKey     = "token_claims"
)

// Principal is the caller of a request. BranchCode is set only for branch
// supervisors with an assignment; it is resolved once per request.
type Principal struct {
	UserID     uuid.UUID
	FullName   string
	Email      string
	Role       models.UserRole
	BranchCode *string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

func (p *Principal) IsSupervisor() bool {
	return p != nil && p.Role == models.RoleBranchSupervisor
}

// PrincipalFrom returns the authenticated caller or nil for anonymous requests.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(CtxPrincipalKey).(*Principal)
	return p
}

// MustPrincipal is PrincipalFrom for routes behind Middleware.
func MustPrincipal(c *fiber.Ctx) (*Principal, error) {
	p := PrincipalFrom(c)
	if p == nil {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	return p, nil
}
