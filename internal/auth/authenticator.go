package auth

import (
	"context"
	"errors"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Authenticator struct {
	db      *gorm.DB
	tokens  *Tokens
	revoked RevocationStore
	log     *zap.Logger
}

func NewAuthenticator(db *gorm.DB, tokens *Tokens, revoked RevocationStore, log *zap.Logger) *Authenticator {
	return &Authenticator{db: db, tokens: tokens, revoked: revoked, log: log.Named("auth")}
}

// Authenticate resolves an access token to a Principal. Bad, revoked or
// orphaned tokens are Unauthenticated; store failures are Persistence errors.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, _, err := a.authenticate(ctx, token)
	return p, err
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (*Principal, *Claims, error) {
	if token == "" {
		return nil, nil, apperr.Unauthenticated("Authentication required")
	}

	claims, err := a.tokens.ParseAccess(token)
	if err != nil {
		return nil, nil, apperr.Unauthenticated("Invalid token")
	}

	revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		a.log.Warn("revocation lookup failed", zap.Error(err))
		return nil, nil, apperr.Unauthenticated("Invalid token")
	}
	if revoked {
		return nil, nil, apperr.Unauthenticated("Token has been revoked")
	}

	p, err := a.ResolvePrincipal(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return p, claims, nil
}

// ResolvePrincipal loads the user named by claims and, for supervisors, their
// branch assignment.
func (a *Authenticator) ResolvePrincipal(ctx context.Context, claims *Claims) (*Principal, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("User not found")
		}
		return nil, apperr.Persistence("load user", err)
	}

	p := &Principal{
		UserID:   user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	}

	if user.Role == models.RoleBranchSupervisor {
		var assignment models.BranchSupervisor
		err := a.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&assignment).Error
		switch {
		case err == nil:
			code := assignment.BranchCode
			p.BranchCode = &code
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Unassigned supervisors authenticate but fail every branch check.
		default:
			return nil, apperr.Persistence("load supervisor assignment", err)
		}
	}
	return p, nil
}
