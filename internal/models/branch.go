package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch is a physical store location. BranchCode is the business key that
// complaints and supervisor assignments refer to; it never changes after creation.
type Branch struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchCode string    `gorm:"size:50;uniqueIndex;not null"`
	Name       string    `gorm:"size:100;not null"`
	Address    string    `gorm:"size:255;not null"`
	Phone      string    `gorm:"size:30;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
