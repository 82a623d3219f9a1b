package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/service"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and resolves the caller against
// the local user directory.
type AuthMiddleware struct {
	tokens *TokenManager
	users  *service.UserService
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users *service.UserService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	user, err := m.users.Resolve(c.Context(), service.ProvisionInput{
		UserID:     claims.Subject,
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
		Department: claims.Department,
	})
	if err != nil {
		return err
	}

	c.Locals(principalKey, domain.Principal{UserID: user.ID, Role: user.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}
