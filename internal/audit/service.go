// Package audit records who changed what. Rows are written in the same
// transaction as the change they describe.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"

	"gorm.io/gorm"
)

const (
	EntityBranch     = "branch"
	EntitySupervisor = "branch_supervisor"
	EntityCustomer   = "customer"
	EntityComplaint  = "complaint"
)

type Entry struct {
	BranchCode  *string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Write stores e attributed to actor using tx.
func Write(ctx context.Context, tx *gorm.DB, actor *auth.Principal, e Entry) error {
	row := models.AuditLog{
		BranchCode:  e.BranchCode,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  snapshot(e.Before),
		AfterData:   snapshot(e.After),
	}
	if actor != nil {
		row.UserID = actor.UserID
		row.UserName = actor.FullName
	}

	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// snapshot encodes v as JSON, "null" when absent or not encodable.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
