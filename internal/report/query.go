package report

import (
	"complaintdesk/internal/apperr"
	"complaintdesk/internal/models"

	"gorm.io/gorm"
)

type query struct {
	db         *gorm.DB
	r          Range
	branchCode string
}

// complaints starts a fresh statement over complaints in range (and branch).
func (q query) complaints() *gorm.DB {
	tx := q.db.Model(&models.Complaint{}).
		Where("created_at >= ? AND created_at <= ?", q.r.Start, q.r.End)
	if q.branchCode != "" {
		tx = tx.Where("branch_code = ?", q.branchCode)
	}
	return tx
}

func (q query) summary() (Summary, error) {
	var (
		s         Summary
		anonymous int64
	)
	counts := []struct {
		name  string
		dst   *int64
		where func(*gorm.DB) *gorm.DB
	}{
		{"total", &s.Total, func(tx *gorm.DB) *gorm.DB { return tx }},
		{"resolved", &s.Resolved, byStatus(models.StatusResolved)},
		{"pending", &s.Pending, byStatus(models.StatusPending)},
		{"in_progress", &s.InProgress, byStatus(models.StatusInProgress)},
		{"anonymous", &anonymous, func(tx *gorm.DB) *gorm.DB { return tx.Where("is_anonymous = ?", true) }},
	}
	for _, c := range counts {
		if err := c.where(q.complaints()).Count(c.dst).Error; err != nil {
			return Summary{}, apperr.AggregationFailure("count "+c.name, err)
		}
	}
	s.AnonymousRatio = AnonymousRatio(anonymous, s.Total)
	return s, nil
}

func byStatus(status models.ComplaintStatus) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB { return tx.Where("status = ?", status) }
}

type branchRow struct {
	BranchCode string
	Total      int64
	BranchName *string
}

// branchCounts groups complaints by branch, optionally restricted to status,
// and returns the largest groups first. Ties go to the branch whose first
// complaint in range is earliest, then to the lower branch code.
func (q query) branchCounts(status *models.ComplaintStatus, limit int) ([]BranchCount, error) {
	grouped := q.complaints()
	if status != nil {
		grouped = grouped.Where("status = ?", *status)
	}
	grouped = grouped.
		Select("branch_code, COUNT(*) AS total, MIN(created_at) AS first_at").
		Group("branch_code")

	var rows []branchRow
	err := q.db.Table("(?) AS g", grouped).
		Select("g.branch_code, g.total, b.name AS branch_name").
		Joins("LEFT JOIN branches b ON b.branch_code = g.branch_code").
		Order("g.total DESC, g.first_at ASC, g.branch_code ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]BranchCount, 0, len(rows))
	for _, row := range rows {
		name := unknownBranch
		if row.BranchName != nil && *row.BranchName != "" {
			name = *row.BranchName
		}
		out = append(out, BranchCount{BranchCode: row.BranchCode, BranchName: name, Count: row.Total})
	}
	return out, nil
}

type complainerRow struct {
	CreatedBy *string
	Total     int64
	FullName  *string
}

// complainers ranks creators of non-anonymous complaints with the same
// tie-break as branchCounts.
func (q query) complainers() ([]Complainer, error) {
	grouped := q.complaints().
		Where("is_anonymous = ?", false).
		Select("created_by, COUNT(*) AS total, MIN(created_at) AS first_at").
		Group("created_by")

	var rows []complainerRow
	err := q.db.Table("(?) AS g", grouped).
		Select("g.created_by, g.total, u.full_name").
		Joins("LEFT JOIN users u ON u.id = g.created_by").
		Order("g.total DESC, g.first_at ASC, g.created_by ASC").
		Limit(topN).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Complainer, 0, len(rows))
	for _, row := range rows {
		c := Complainer{UserID: unknownID, Name: unknownUser, Count: row.Total}
		if row.CreatedBy != nil && *row.CreatedBy != "" {
			c.UserID = *row.CreatedBy
		}
		if row.FullName != nil && *row.FullName != "" {
			c.Name = *row.FullName
		}
		out = append(out, c)
	}
	return out, nil
}
