package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eachn05-lang/Ea-desk/internal/api/dto"
	"github.com/eachn05-lang/Ea-desk/internal/auth"
	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/service"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// AdminHandler exposes the admin dashboard endpoints.
type AdminHandler struct {
	stats *service.StatsService
	users *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(statsService *service.StatsService, userService *service.UserService) *AdminHandler {
	return &AdminHandler{stats: statsService, users: userService}
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	stats, err := h.stats.Summary(c.Context(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ListTeam handles GET /admin/team.
func (h *AdminHandler) ListTeam(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	users, err := h.users.ListTeam(c.Context(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateRole handles PATCH /admin/team/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	userID := c.Params("id")
	if userID == "" {
		return util.NewNotFound("user")
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.users.UpdateRole(c.Context(), principal, userID, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
