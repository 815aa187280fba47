package auth

import (
	"strings"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Middleware rejects requests without a valid bearer token and stores the
// Principal in locals for the rest of the request.
func Middleware(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return apperr.Unauthenticated("Authentication required")
		}
		p, claims, err := a.authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(CtxPrincipalKey, p)
		c.Locals(CtxTokenKey, claims)
		return c.Next()
	}
}

// OptionalMiddleware authenticates when a bearer token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalMiddleware(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		p, claims, err := a.authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(CtxPrincipalKey, p)
		c.Locals(CtxTokenKey, claims)
		return c.Next()
	}
}

func RequireRole(allowed ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := AuthorizeRole(PrincipalFrom(c), allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}
