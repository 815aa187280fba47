package report

import (
	"time"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// request is a parsed and authorized report request. An empty branchCode
// means the overall report.
type request struct {
	rng        Range
	branchCode string
}

// resolve authorizes the caller and parses the query string. Supervisors are
// confined to their own branch: without branchCode they get their branch
// report, naming another branch is Forbidden.
func resolve(c *fiber.Ctx, loc *time.Location) (request, error) {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return request{}, err
	}
	if err := auth.AuthorizeRole(p, models.RoleAdmin, models.RoleBranchSupervisor); err != nil {
		return request{}, err
	}

	code := c.Query("branchCode")
	if p.IsSupervisor() && code == "" {
		if p.BranchCode == nil {
			return request{}, apperr.Forbidden("Forbidden: No branch assigned")
		}
		code = *p.BranchCode
	}
	if code != "" {
		if err := auth.AuthorizeBranchAccess(p, code); err != nil {
			return request{}, err
		}
	}

	rng, err := ParseRange(c.Query("start"), c.Query("end"), loc)
	if err != nil {
		return request{}, err
	}
	return request{rng: rng, branchCode: code}, nil
}

// Handler serves GET /api/report.
func Handler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := resolve(c, loc)
		if err != nil {
			return err
		}

		if req.branchCode != "" {
			out, err := svc.Branch(c.UserContext(), req.rng, req.branchCode)
			if err != nil {
				return err
			}
			return c.JSON(out)
		}

		out, err := svc.Overall(c.UserContext(), req.rng)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

func Routes(router fiber.Router, svc *Service, loc *time.Location, authn fiber.Handler) {
	g := router.Group("/report", authn)
	g.Get("/", Handler(svc, loc))
	g.Get("/export", ExportHandler(svc, loc))
}
