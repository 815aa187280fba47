// Package server assembles the fiber application: error handling, CORS,
// request logging, health check and every /api route group.
package server

import (
	"strings"
	"time"

	"complaintdesk/internal/apperr"
	"complaintdesk/internal/audit"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/branch"
	"complaintdesk/internal/complaint"
	"complaintdesk/internal/config"
	"complaintdesk/internal/customer"
	"complaintdesk/internal/database"
	"complaintdesk/internal/logger"
	"complaintdesk/internal/notify"
	"complaintdesk/internal/report"
	"complaintdesk/internal/supervisor"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Tokens      *auth.Tokens
	Revocations auth.RevocationStore
	Notifier    notify.Notifier
}

func New(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: apperr.Handler(d.Log, cfg.App.IsDevelopment()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORS.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(logger.Middleware(d.Log))

	app.Get("/health", healthHandler(d.DB))

	authenticator := auth.NewAuthenticator(d.DB, d.Tokens, d.Revocations, d.Log)
	authn := auth.Middleware(authenticator)

	api := app.Group("/api")
	auth.Routes(api, d.DB, authenticator, d.Notifier, d.Log)
	complaint.Routes(api, complaint.NewService(d.DB, d.Notifier, d.Log), authenticator)
	branch.Routes(api, d.DB, authn)
	supervisor.Routes(api, d.DB, authn)
	customer.Routes(api, d.DB, authn, d.Notifier)
	report.Routes(api, report.NewService(d.DB, d.Log), cfg.Report.Location(), authn)
	audit.Routes(api, d.DB, authn)

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unavailable",
				"database": "down",
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	}
}
