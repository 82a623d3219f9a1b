package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// RequireAdmin ensures the caller holds the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if !principal.IsAdmin() {
			return util.NewForbidden()
		}
		return c.Next()
	}
}
