package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/academia-portal/internal/api/http/handlers"
	"github.com/spec-kit/academia-portal/internal/guard"
	"github.com/spec-kit/academia-portal/internal/navigation"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Session       *handlers.SessionHandler
	Notifications *handlers.NotificationHandler
	Debug         *handlers.DebugHandler
	Guard         fiber.Handler
	Table         *guard.Table
	Routes        navigation.Routes
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/debug/metrics", cfg.Debug.Metrics)

	app.Get(cfg.Routes.Login, cfg.Session.LoginPage)
	app.Post(cfg.Routes.Login, cfg.Session.Login)
	app.Post("/logout", cfg.Session.Logout)
	app.Get(cfg.Routes.Unauthorized, cfg.Session.Unauthorized)
	app.Get("/api/session", cfg.Session.Session)
	app.Get("/api/notifications", cfg.Notifications.List)
	app.Get("/api/notifications/:id", cfg.Notifications.Get)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(cfg.Routes.Landing, fiber.StatusFound)
	})

	views := app.Group("", cfg.Guard)
	for _, route := range cfg.Table.Routes() {
		view := cfg.Session.View(route)
		views.Get(route.Prefix, view)
		views.Get(route.Prefix+"/*", view)
	}
}
