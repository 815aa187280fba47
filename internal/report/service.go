// Package report computes complaint statistics over a date range, either for
// every branch or for a single one.
package report

import (
	"context"
	"errors"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	topN          = 3
	unknownBranch = "Unknown Branch"
	unknownUser   = "Unknown Username"
	unknownID     = "Unknown Id"
)

type Summary struct {
	Total          int64  `json:"total_complaints"`
	Resolved       int64  `json:"resolved"`
	Pending        int64  `json:"pending"`
	InProgress     int64  `json:"in_progress"`
	AnonymousRatio string `json:"anonymous_complaints_ratio"`
}

type BranchCount struct {
	BranchCode string `json:"branch_code"`
	BranchName string `json:"branch_name"`
	Count      int64  `json:"count"`
}

type PendingBranch struct {
	BranchCode string `json:"branch_code"`
	BranchName string `json:"branch_name"`
	Pending    int64  `json:"pending"`
}

type Complainer struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

type Overall struct {
	Summary
	TopBranches          []BranchCount  `json:"top_branches_by_complaints"`
	HighestPendingBranch *PendingBranch `json:"branch_with_highest_pending"`
	FrequentComplainers  []Complainer   `json:"most_frequent_complainers"`
}

type Branch struct {
	BranchCode string `json:"branch_code"`
	BranchName string `json:"branch_name"`
	Summary
	FrequentComplainers []Complainer `json:"most_frequent_complainers"`
}

// Service runs the report queries. The queries are independent reads and are
// not taken from one snapshot.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("report")}
}

func (s *Service) Overall(ctx context.Context, r Range) (*Overall, error) {
	q := query{db: s.db.WithContext(ctx), r: r}

	summary, err := q.summary()
	if err != nil {
		return nil, err
	}
	top, err := q.branchCounts(nil, topN)
	if err != nil {
		return nil, apperr.AggregationFailure("top branches", err)
	}
	pending, err := q.branchCounts(statusPtr(models.StatusPending), 1)
	if err != nil {
		return nil, apperr.AggregationFailure("highest pending branch", err)
	}
	complainers, err := q.complainers()
	if err != nil {
		return nil, apperr.AggregationFailure("frequent complainers", err)
	}

	out := &Overall{
		Summary:             summary,
		TopBranches:         top,
		FrequentComplainers: complainers,
	}
	if len(pending) > 0 {
		out.HighestPendingBranch = &PendingBranch{
			BranchCode: pending[0].BranchCode,
			BranchName: pending[0].BranchName,
			Pending:    pending[0].Count,
		}
	}
	s.log.Debug("overall report generated", zap.Time("start", r.Start), zap.Time("end", r.End), zap.Int64("total", summary.Total))
	return out, nil
}

func (s *Service) Branch(ctx context.Context, r Range, branchCode string) (*Branch, error) {
	q := query{db: s.db.WithContext(ctx), r: r, branchCode: branchCode}

	summary, err := q.summary()
	if err != nil {
		return nil, err
	}
	complainers, err := q.complainers()
	if err != nil {
		return nil, apperr.AggregationFailure("frequent complainers", err)
	}

	name := unknownBranch
	var branch models.Branch
	err = q.db.Where("branch_code = ?", branchCode).Take(&branch).Error
	switch {
	case err == nil:
		name = branch.Name
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.AggregationFailure("branch lookup", err)
	}

	s.log.Debug("branch report generated", zap.String("branch_code", branchCode), zap.Int64("total", summary.Total))
	return &Branch{
		BranchCode:          branchCode,
		BranchName:          name,
		Summary:             summary,
		FrequentComplainers: complainers,
	}, nil
}

// AnonymousRatio formats anonymous/total with two decimals; "0.00" when total is zero.
func AnonymousRatio(anonymous, total int64) string {
	if total <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(anonymous).Div(decimal.NewFromInt(total)).StringFixed(2)
}

func statusPtr(s models.ComplaintStatus) *models.ComplaintStatus { return &s }
