package account

import (
	"time"

	"complaintdesk/internal/models"

	"github.com/google/uuid"
)

// UserView is the public shape of a user. The password hash never leaves the package boundary.
type UserView struct {
	ID         uuid.UUID       `json:"id"`
	FullName   string          `json:"fullName"`
	Email      string          `json:"email"`
	Phone      string          `json:"phoneNo"`
	Role       models.UserRole `json:"role"`
	BranchCode *string         `json:"branchCode,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func NewUserView(u models.User) UserView {
	return UserView{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
