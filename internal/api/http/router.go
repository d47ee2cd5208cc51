package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Tickets         *handlers.TicketsHandler
	SupervisorLinks *handlers.SupervisorLinksHandler
	AutoClose       *handlers.AutoCloseHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	tickets := api.Group("/tickets")
	tickets.Post("/bulk/state", adminOnly, cfg.Tickets.BulkTransition)
	tickets.Post("/bulk/assign", adminOnly, cfg.Tickets.BulkAssign)
	tickets.Get("/numbering/last", adminOnly, cfg.Tickets.LastCorrelative)
	tickets.Post("/numbering/reset", adminOnly, cfg.Tickets.ResetCorrelative)
	tickets.Put("/numbering/settings", adminOnly, cfg.Tickets.NumberingSettings)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Patch("/:id/state", cfg.Tickets.Transition)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Get("/:id/available-technicians", cfg.Tickets.AvailableTechnicians)

	links := api.Group("/supervisor-links")
	links.Post("/", cfg.SupervisorLinks.Link)
	links.Delete("/", cfg.SupervisorLinks.Unlink)
	links.Get("/supervisors/:id/technicians", cfg.SupervisorLinks.TechniciansOf)
	links.Get("/technicians/:id/supervisors", cfg.SupervisorLinks.SupervisorsOf)
	links.Get("/can-assign", cfg.SupervisorLinks.CanAssign)
	links.Get("/available", cfg.SupervisorLinks.Available)

	autoClose := api.Group("/auto-close", adminOnly)
	autoClose.Post("/run", cfg.AutoClose.Run)
	autoClose.Post("/run-full", cfg.AutoClose.RunFull)
	autoClose.Post("/reconfigure", cfg.AutoClose.Reconfigure)
	autoClose.Get("/status", cfg.AutoClose.Status)
	autoClose.Put("/settings", cfg.AutoClose.UpdateSettings)
}
