// Package testutil holds helpers shared by package tests: an in-memory SQLite
// store with the full schema, and a sqlmock-backed handle for failure paths.
package testutil

import (
	"database/sql"
	"testing"
	"time"

	"complaintdesk/internal/database"
	"complaintdesk/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database and migrates it.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Options(gormlogger.Discard))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every new connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// MockDB wraps a gorm handle whose driver is a sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	cfg := database.Options(gormlogger.Discard)
	cfg.SkipDefaultTransaction = true
	db, err := gorm.Open(dialector, cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: db, Mock: mock, SqlDB: mockDB}
}

func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// Password is the plain-text password of every user created by CreateUser.
const Password = "secret123"

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

func CreateUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		FullName:     name,
		Email:        uuid.NewString()[:8] + "@example.com",
		Phone:        "0771234567",
		PasswordHash: passwordHash,
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateBranch(t *testing.T, db *gorm.DB, code, name string) *models.Branch {
	t.Helper()
	b := &models.Branch{BranchCode: code, Name: name, Address: "1 Main St", Phone: "0112345678"}
	require.NoError(t, db.Create(b).Error)
	return b
}

func AssignSupervisor(t *testing.T, db *gorm.DB, user *models.User, branchCode string) *models.BranchSupervisor {
	t.Helper()
	s := &models.BranchSupervisor{UserID: user.ID, BranchCode: branchCode}
	require.NoError(t, db.Create(s).Error)
	return s
}

// ComplaintSpec describes a complaint to insert with a fixed creation time.
type ComplaintSpec struct {
	BranchCode string
	Status     models.ComplaintStatus
	CreatedBy  *models.User
	CreatedAt  time.Time
}

func CreateComplaint(t *testing.T, db *gorm.DB, spec ComplaintSpec) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		Description: "complaint at " + spec.BranchCode,
		BranchCode:  spec.BranchCode,
		Status:      spec.Status,
		IsAnonymous: spec.CreatedBy == nil,
		CreatedAt:   spec.CreatedAt.UTC(),
		UpdatedAt:   spec.CreatedAt.UTC(),
	}
	if spec.CreatedBy != nil {
		id := spec.CreatedBy.ID
		c.CreatedBy = &id
	}
	require.NoError(t, db.Create(c).Error)
	return c
}
