// Package complaint implements the complaint ledger: creation (signed in or
// anonymous), branch-scoped triage and the append-only action history.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/audit"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const notFoundMsg = "Complaint not found"

type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
	log      *zap.Logger
}

func NewService(db *gorm.DB, notifier notify.Notifier, log *zap.Logger) *Service {
	return &Service{db: db, notifier: notifier, log: log.Named("complaint")}
}

type CreateInput struct {
	Description string `json:"description" validate:"required,max=5000"`
	BranchCode  string `json:"branchCode" validate:"required,max=50"`
}

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	Status     *models.ComplaintStatus
	BranchCode string
	CreatedBy  *uuid.UUID
}

// Create stores a new pending complaint. A nil creator makes it anonymous.
func (s *Service) Create(ctx context.Context, creator *auth.Principal, in CreateInput) (*models.Complaint, error) {
	in.BranchCode = strings.TrimSpace(in.BranchCode)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Branch{}).Where("branch_code = ?", in.BranchCode).Count(&count).Error; err != nil {
		return nil, apperr.Persistence("check branch", err)
	}
	if count == 0 {
		return nil, apperr.Validation("Branch not found", apperr.Detail{Field: "branchCode", Message: "Branch not found"})
	}

	c := &models.Complaint{
		Description: strings.TrimSpace(in.Description),
		BranchCode:  in.BranchCode,
		Status:      models.StatusPending,
		IsAnonymous: creator == nil,
		Actions:     []models.ComplaintAction{},
	}
	if creator != nil {
		id := creator.UserID
		c.CreatedBy = &id
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, apperr.Persistence("create complaint", err)
	}

	s.log.Info("complaint created",
		zap.String("complaint_id", c.ID.String()),
		zap.String("branch_code", c.BranchCode),
		zap.Bool("anonymous", c.IsAnonymous),
	)
	s.notifier.ComplaintCreated(*c, principalUser(creator))
	return c, nil
}

// Get loads a complaint with its actions in insertion order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	return s.get(ctx, s.db, id)
}

func (s *Service) get(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Complaint, error) {
	var c models.Complaint
	err := db.WithContext(ctx).
		Preload("Actions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, apperr.FromDB(err, notFoundMsg, "")
	}
	return &c, nil
}

// List returns complaints newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Complaint, error) {
	q := s.db.WithContext(ctx).
		Preload("Actions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") })
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.BranchCode != "" {
		q = q.Where("branch_code = ?", f.BranchCode)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ? AND is_anonymous = ?", *f.CreatedBy, false)
	}

	var out []models.Complaint
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, apperr.Persistence("list complaints", err)
	}
	return out, nil
}

// AuthorizeRead allows the creator of a complaint, and staff with access to its branch.
func AuthorizeRead(p *auth.Principal, c *models.Complaint) error {
	if c.CreatedBy != nil && !c.IsAnonymous {
		if auth.AuthorizeResourceOwnership(p, *c.CreatedBy) == nil {
			return nil
		}
	}
	return auth.AuthorizeBranchAccess(p, c.BranchCode)
}

// UpdateStatus sets any allowed status; there is no transition graph.
func (s *Service) UpdateStatus(ctx context.Context, p *auth.Principal, id uuid.UUID, status models.ComplaintStatus) (*models.Complaint, error) {
	var c *models.Complaint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeBranchAccess(p, c.BranchCode); err != nil {
			return err
		}

		before := c.Status
		now := tx.NowFunc()
		err = tx.Model(&models.Complaint{}).Where("id = ?", c.ID).
			Updates(map[string]any{"status": status, "updated_at": now}).Error
		if err != nil {
			return apperr.Persistence("update status", err)
		}
		c.Status = status
		c.UpdatedAt = now

		return audit.Write(ctx, tx, p, audit.Entry{
			BranchCode:  &c.BranchCode,
			EntityType:  audit.EntityComplaint,
			EntityID:    c.ID.String(),
			Action:      models.AuditActionStatusChange,
			Description: fmt.Sprintf("Status changed from %s to %s", before, status),
			Before:      map[string]models.ComplaintStatus{"status": before},
			After:       map[string]models.ComplaintStatus{"status": status},
		})
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.notifier.StatusChanged(*c, s.creator(ctx, c))
	return c, nil
}

// AddAction appends to the action history. The status is left untouched.
func (s *Service) AddAction(ctx context.Context, p *auth.Principal, id uuid.UUID, description string) (*models.Complaint, *models.ComplaintAction, error) {
	var (
		c      *models.Complaint
		action *models.ComplaintAction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := auth.AuthorizeBranchAccess(p, c.BranchCode); err != nil {
			return err
		}

		action = &models.ComplaintAction{ComplaintID: c.ID, Description: strings.TrimSpace(description)}
		if err := tx.Create(action).Error; err != nil {
			return apperr.Persistence("add action", err)
		}
		now := tx.NowFunc()
		if err := tx.Model(&models.Complaint{}).Where("id = ?", c.ID).Update("updated_at", now).Error; err != nil {
			return apperr.Persistence("touch complaint", err)
		}
		c.UpdatedAt = now
		c.Actions = append(c.Actions, *action)

		return audit.Write(ctx, tx, p, audit.Entry{
			BranchCode:  &c.BranchCode,
			EntityType:  audit.EntityComplaint,
			EntityID:    c.ID.String(),
			Action:      models.AuditActionAddAction,
			Description: action.Description,
			After:       map[string]string{"action": action.Description},
		})
	})
	if err != nil {
		return nil, nil, asAppError(err)
	}

	s.notifier.ActionAdded(*c, *action, s.creator(ctx, c))
	return c, action, nil
}

// Creators loads the users behind the given complaints, keyed by id. Missing
// users are simply absent.
func (s *Service) Creators(ctx context.Context, complaints ...models.Complaint) (map[uuid.UUID]models.User, error) {
	ids := make([]uuid.UUID, 0, len(complaints))
	seen := make(map[uuid.UUID]bool, len(complaints))
	for _, c := range complaints {
		if c.CreatedBy != nil && !seen[*c.CreatedBy] {
			seen[*c.CreatedBy] = true
			ids = append(ids, *c.CreatedBy)
		}
	}
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Persistence("load complaint creators", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// creator is the user to notify about c, nil when anonymous or gone.
func (s *Service) creator(ctx context.Context, c *models.Complaint) *models.User {
	if c.CreatedBy == nil || c.IsAnonymous {
		return nil
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", *c.CreatedBy).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("load complaint creator", zap.String("complaint_id", c.ID.String()), zap.Error(err))
		}
		return nil
	}
	return &u
}

func principalUser(p *auth.Principal) *models.User {
	if p == nil {
		return nil
	}
	return &models.User{ID: p.UserID, FullName: p.FullName, Email: p.Email, Role: p.Role}
}

// asAppError keeps typed errors and wraps anything else as a persistence failure.
func asAppError(err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Persistence("complaint transaction", err)
}
