package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BranchSupervisor assigns a branch_supervisor user to exactly one branch.
type BranchSupervisor struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	User       User      `gorm:"constraint:OnDelete:CASCADE"`
	BranchCode string    `gorm:"size:50;not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *BranchSupervisor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
