package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/modbot/internal/api/http/handlers"
	"github.com/spec-kit/modbot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Moderation     *handlers.ModerationHandler
	Tickets        *handlers.TicketsHandler
	Suggestions    *handlers.SuggestionsHandler
	Audit          *handlers.AuditHandler
	Metrics        http.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireScope(auth.ScopeRead))
	api.Get("/cases/:id", cfg.Moderation.GetCase)
	api.Get("/users/:id/warnings", cfg.Moderation.ListWarnings)
	api.Get("/sanctions", cfg.Moderation.ListSanctions)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/suggestions", cfg.Suggestions.ListSuggestions)
	api.Get("/suggestions/:id", cfg.Suggestions.GetSuggestion)
	api.Get("/audit", auth.RequireScope(auth.ScopeAdmin), cfg.Audit.ListAudit)
}
