package guard

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/navigation"
	"github.com/spec-kit/academia-portal/internal/observability"
)

const identityKey = "session_identity"

// SnapshotSource exposes the current session snapshot.
type SnapshotSource interface {
	Snapshot() domain.SessionSnapshot
}

// Middleware applies the table to every request. Paths outside the table
// pass through untouched.
func Middleware(source SnapshotSource, table *Table, routes navigation.Routes, metrics *observability.Metrics, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		route, ok := table.Match(c.Path())
		if !ok {
			return c.Next()
		}
		return enforce(c, route.Prefix, source.Snapshot(), route.Requirement, routes, metrics, logger)
	}
}

// Require guards a single handler. Outcomes are counted under the registered
// route pattern.
func Require(source SnapshotSource, req Requirement, routes navigation.Routes, metrics *observability.Metrics) fiber.Handler {
	logger := zap.NewNop()
	return func(c *fiber.Ctx) error {
		return enforce(c, c.Route().Path, source.Snapshot(), req, routes, metrics, logger)
	}
}

// IdentityFromContext returns the identity a permitted request was admitted with.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// enforce counts outcomes under key, never the raw request path, so the
// counter set stays bounded by the route table.
func enforce(c *fiber.Ctx, key string, snapshot domain.SessionSnapshot, req Requirement, routes navigation.Routes, metrics *observability.Metrics, logger *zap.Logger) error {
	decision := Decide(snapshot, req, routes)
	metrics.RecordGuard(key, decision.Outcome.String())

	switch decision.Outcome {
	case Permit:
		c.Locals(identityKey, snapshot.Identity)
		return c.Next()
	case Pending:
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"view": "loading", "path": c.Path()})
	default:
		logger.Debug("guard redirect",
			zap.String("path", c.Path()),
			zap.String("outcome", decision.Outcome.String()),
			zap.String("to", decision.Redirect))
		return c.Redirect(decision.Redirect, fiber.StatusFound)
	}
}
