package complaint

import (
	"strings"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"
	"complaintdesk/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ActionRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFoundMsg)
	}
	return id, nil
}

func statusValues() string {
	names := make([]string, 0, len(models.ComplaintStatuses))
	for _, s := range models.ComplaintStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func parseStatus(field, v string) (models.ComplaintStatus, error) {
	s, ok := models.ParseComplaintStatus(v)
	if !ok {
		return "", apperr.Validation("Invalid status", apperr.Detail{
			Field:   field,
			Message: "Status must be one of: " + statusValues(),
		})
	}
	return s, nil
}

// statusFilter reads the optional ?status= query parameter.
func statusFilter(c *fiber.Ctx) (*models.ComplaintStatus, error) {
	v := c.Query("status")
	if v == "" {
		return nil, nil
	}
	s, err := parseStatus("status", v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Service) respondList(c *fiber.Ctx, list []models.Complaint) error {
	creators, err := s.Creators(c.UserContext(), list...)
	if err != nil {
		return err
	}
	out := listResponse{Count: len(list), Complaints: make([]View, 0, len(list))}
	for _, item := range list {
		out.Complaints = append(out.Complaints, NewView(item, creators))
	}
	return c.JSON(out)
}

// POST /api/complaints/anonymous
func CreateAnonymousHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		created, err := svc.Create(c.UserContext(), nil, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":     "Anonymous complaint submitted successfully",
			"complaintId": created.ID,
			"status":      created.Status,
		})
	}
}

// POST /api/complaints
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateInput
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		created, err := svc.Create(c.UserContext(), p, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":   "Complaint submitted successfully",
			"complaint": NewView(*created, nil),
		})
	}
}

// GET /api/complaints/status/:id is public. Anonymous complaints only expose
// their status; others are shown in full, with creator details only for
// callers allowed to read them.
func StatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		found, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if found.IsAnonymous {
			return c.JSON(newStatusView(*found))
		}

		creators := map[uuid.UUID]models.User{}
		if p := auth.PrincipalFrom(c); p != nil && AuthorizeRead(p, found) == nil {
			if creators, err = svc.Creators(c.UserContext(), *found); err != nil {
				return err
			}
		}
		return c.JSON(fiber.Map{"complaint": NewView(*found, creators)})
	}
}

// GET /api/complaints/my-complaints
func MyComplaintsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), Filter{CreatedBy: &p.UserID})
		if err != nil {
			return err
		}
		return svc.respondList(c, list)
	}
}

// GET /api/complaints/branch/:branchCode
func BranchComplaintsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		code := c.Params("branchCode")
		if err := auth.AuthorizeBranchAccess(p, code); err != nil {
			return err
		}
		status, err := statusFilter(c)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), Filter{BranchCode: code, Status: status})
		if err != nil {
			return err
		}
		return svc.respondList(c, list)
	}
}

// GET /api/complaints lists everything for admins. Supervisors are held to
// their own branch.
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		status, err := statusFilter(c)
		if err != nil {
			return err
		}

		code := c.Query("branchCode")
		if !p.IsAdmin() {
			if code == "" && p.BranchCode != nil {
				code = *p.BranchCode
			}
			if err := auth.AuthorizeBranchAccess(p, code); err != nil {
				return err
			}
		}

		list, err := svc.List(c.UserContext(), Filter{BranchCode: code, Status: status})
		if err != nil {
			return err
		}
		return svc.respondList(c, list)
	}
}

// GET /api/complaints/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		found, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if err := AuthorizeRead(p, found); err != nil {
			return err
		}
		creators, err := svc.Creators(c.UserContext(), *found)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"complaint": NewView(*found, creators)})
	}
}

// PATCH /api/complaints/:id/status
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		status, err := parseStatus("status", body.Status)
		if err != nil {
			return err
		}

		updated, err := svc.UpdateStatus(c.UserContext(), p, id, status)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":   "Complaint status updated successfully",
			"status":    updated.Status,
			"complaint": NewView(*updated, nil),
		})
	}
}

// POST /api/complaints/:id/actions
func AddActionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body ActionRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		updated, _, err := svc.AddAction(c.UserContext(), p, id, body.Description)
		if err != nil {
			return err
		}
		view := NewView(*updated, nil)
		return c.JSON(fiber.Map{
			"message":      "Action added to complaint successfully",
			"actionsTaken": view.ActionsTaken,
			"complaint":    view,
		})
	}
}

// Routes mounts /api/complaints. Static segments are registered before /:id.
func Routes(router fiber.Router, svc *Service, a *auth.Authenticator) {
	authn := auth.Middleware(a)
	staff := auth.RequireRole(models.RoleBranchSupervisor, models.RoleAdmin)

	g := router.Group("/complaints")
	g.Post("/anonymous", CreateAnonymousHandler(svc))
	g.Get("/status/:id", auth.OptionalMiddleware(a), StatusHandler(svc))

	g.Post("/", authn, CreateHandler(svc))
	g.Get("/my-complaints", authn, MyComplaintsHandler(svc))
	g.Get("/branch/:branchCode", authn, staff, BranchComplaintsHandler(svc))
	g.Get("/", authn, staff, ListHandler(svc))
	g.Get("/:id", authn, GetHandler(svc))
	g.Patch("/:id/status", authn, staff, UpdateStatusHandler(svc))
	g.Post("/:id/actions", authn, staff, AddActionHandler(svc))
}
