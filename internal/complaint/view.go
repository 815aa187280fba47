package complaint

import (
	"time"

	"complaintdesk/internal/models"

	"github.com/google/uuid"
)

type CreatorView struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    string    `json:"phoneNo"`
}

type ActionView struct {
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View is the full complaint representation. CreatedBy is null for anonymous
// complaints and for creators whose account no longer exists.
type View struct {
	ID           uuid.UUID              `json:"id"`
	Description  string                 `json:"description"`
	BranchCode   string                 `json:"branchCode"`
	Status       models.ComplaintStatus `json:"status"`
	IsAnonymous  bool                   `json:"isAnonymous"`
	CreatedBy    *CreatorView           `json:"createdBy"`
	ActionsTaken []ActionView           `json:"actionsTaken"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// StatusView is all that is public about an anonymous complaint.
type StatusView struct {
	ID        uuid.UUID              `json:"id"`
	Status    models.ComplaintStatus `json:"status"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type listResponse struct {
	Count      int    `json:"count"`
	Complaints []View `json:"complaints"`
}

func NewView(c models.Complaint, creators map[uuid.UUID]models.User) View {
	v := View{
		ID:           c.ID,
		Description:  c.Description,
		BranchCode:   c.BranchCode,
		Status:       c.Status,
		IsAnonymous:  c.IsAnonymous,
		ActionsTaken: make([]ActionView, 0, len(c.Actions)),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for _, a := range c.Actions {
		v.ActionsTaken = append(v.ActionsTaken, ActionView{Description: a.Description, CreatedAt: a.CreatedAt})
	}
	if c.CreatedBy != nil && !c.IsAnonymous {
		if u, ok := creators[*c.CreatedBy]; ok {
			v.CreatedBy = &CreatorView{ID: u.ID, FullName: u.FullName, Email: u.Email, Phone: u.Phone}
		}
	}
	return v
}

func newStatusView(c models.Complaint) StatusView {
	return StatusView{ID: c.ID, Status: c.Status, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}
