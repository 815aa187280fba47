package auth

import (
	"slices"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"github.com/google/uuid"
)

// AuthorizeRole allows p only when its role is one of allowed.
func AuthorizeRole(p *Principal, allowed ...models.UserRole) error {
	if p == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if !slices.Contains(allowed, p.Role) {
		return apperr.Forbidden("Forbidden: Insufficient permissions")
	}
	return nil
}

// AuthorizeBranchAccess: admins always pass, supervisors only for their own
// assigned branch, everyone else never.
func AuthorizeBranchAccess(p *Principal, branchCode string) error {
	if p == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	switch p.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleBranchSupervisor:
		if p.BranchCode != nil && *p.BranchCode == branchCode {
			return nil
		}
	}
	return apperr.Forbidden("Forbidden: No access to this branch")
}

// AuthorizeResourceOwnership: admins always pass, others only for resources they own.
func AuthorizeResourceOwnership(p *Principal, ownerID uuid.UUID) error {
	if p == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if p.Role == models.RoleAdmin || p.UserID == ownerID {
		return nil
	}
	return apperr.Forbidden("Forbidden: Not the resource owner")
}
