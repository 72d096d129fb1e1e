package auth

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

// Admin API scopes carried in operator tokens.
const (
	ScopeRead  = "read"
	ScopeAdmin = "admin"
)

// RequireScope ensures the operator token carries one of the allowed scopes.
func RequireScope(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 || slices.Contains(principal.Scopes, ScopeAdmin) {
			return c.Next()
		}
		for _, scope := range allowed {
			if slices.Contains(principal.Scopes, scope) {
				return c.Next()
			}
		}
		return apperrors.NewPermissionDenied("insufficient scope")
	}
}
