package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
)

// ComplaintStatuses lists the accepted values in lifecycle order.
var ComplaintStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

// ParseComplaintStatus accepts the canonical names plus "closed", which older
// clients send for the terminal rejected state.
func ParseComplaintStatus(s string) (ComplaintStatus, bool) {
	switch v := ComplaintStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return v, true
	case "closed":
		return StatusRejected, true
	}
	return "", false
}

// Complaint is the central entity. CreatedBy is nil for anonymous complaints;
// branches and users are referenced by key only.
type Complaint struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Description string            `gorm:"type:text;not null"`
	BranchCode  string            `gorm:"size:50;not null;index"`
	CreatedBy   *uuid.UUID        `gorm:"type:uuid;index"`
	IsAnonymous bool              `gorm:"not null;default:false;index"`
	Status      ComplaintStatus   `gorm:"size:20;not null;default:pending;index"`
	Actions     []ComplaintAction `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"index"`
	UpdatedAt   time.Time
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return nil
}

// ComplaintAction is one entry of a complaint's append-only action history.
type ComplaintAction struct {
	ID          uint      `gorm:"primaryKey"`
	ComplaintID uuid.UUID `gorm:"type:uuid;not null;index"`
	Description string    `gorm:"type:text;not null"`
	CreatedAt   time.Time
}
