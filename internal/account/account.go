// Package account creates users and their role profiles. Every path that
// creates a user (self registration, admin-created supervisors, the startup
// admin) goes through NewUser so emails are normalized and hashed the same way.
package account

import (
	"context"
	"errors"
	"strings"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const emailTakenMsg = "User already exists with this email"

// UserInput is the shared shape of a new user in request bodies.
type UserInput struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phoneNo" validate:"required,phone"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewUser inserts a user with the given role using tx. A taken email is a Conflict.
func NewUser(ctx context.Context, tx *gorm.DB, in UserInput, role models.UserRole) (*models.User, error) {
	email := NormalizeEmail(in.Email)

	var count int64
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Persistence("check email", err)
	}
	if count > 0 {
		return nil, apperr.Conflict(emailTakenMsg)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Persistence("hash password", err)
	}

	user := &models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.FromDB(err, "", emailTakenMsg)
	}
	return user, nil
}

// RegisterCustomer creates a customer user and its profile in one transaction.
func RegisterCustomer(ctx context.Context, db *gorm.DB, in UserInput, eCardHolder bool) (*models.User, *models.Customer, error) {
	var (
		user     *models.User
		customer *models.Customer
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = NewUser(ctx, tx, in, models.RoleCustomer)
		if err != nil {
			return err
		}
		customer = &models.Customer{UserID: user.ID, ECardHolder: eCardHolder}
		if err := tx.Create(customer).Error; err != nil {
			return apperr.FromDB(err, "", "Customer profile already exists")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	customer.User = *user
	return user, customer, nil
}

// EnsureAdmin creates the bootstrap admin when the store has no admin yet.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, in UserInput, log *zap.Logger) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if in.Password == "" {
		return false, errors.New("admin.password must be set to bootstrap the first admin")
	}
	if in.Phone == "" {
		in.Phone = "0000000000"
	}

	user, err := NewUser(ctx, db, in, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	log.Info("default admin user created", zap.String("email", user.Email))
	return true, nil
}
