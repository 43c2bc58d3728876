package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/academia-portal/internal/domain"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// RequireAnyRole ensures the verified caller holds one of the allowed roles.
// With no roles given it only requires a verified caller.
func RequireAnyRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := domain.NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if !principal.RoleSet().Intersects(allowedSet) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
