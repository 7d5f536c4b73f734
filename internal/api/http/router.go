package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-bot/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-bot/internal/auth"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Activities   *handlers.ActivityHandler
	Tickets      *handlers.TicketsHandler
	Roster       *handlers.RosterHandler
	ChannelAuth  *auth.ChannelAuth
	AdminKeyHash string
	Metrics      *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	// Guards are attached per route so a rejected request still reports the
	// route it was aimed at.
	api := app.Group("/api")
	api.Post("/messages", cfg.ChannelAuth.Handle, cfg.Activities.Handle)

	adminKey := auth.RequireAdminKey(cfg.AdminKeyHash)
	admin := app.Group("/admin")
	admin.Get("/tickets", adminKey, cfg.Tickets.ListTickets)
	admin.Get("/tickets/:id", adminKey, cfg.Tickets.GetTicket)
	admin.Get("/roster/:teamId", adminKey, cfg.Roster.GetRoster)
}
