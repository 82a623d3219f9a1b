package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eachn05-lang/Ea-desk/internal/auth"
	"github.com/eachn05-lang/Ea-desk/internal/service"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// UsersHandler exposes the caller's own directory entry.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Me handles GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	user, err := h.users.Get(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
