package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Compliance     *handlers.ComplianceHandler
	Sweep          *handlers.SweepHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/:id/sla", auth.RequireScope(auth.ScopeSLARead), cfg.Compliance.GetTicketCompliance)

	admin := app.Group("/admin/sla", cfg.AuthMiddleware.Handle)
	admin.Post("/sweep", auth.RequireScope(auth.ScopeSLATrigger), cfg.Sweep.TriggerSweep)
}
