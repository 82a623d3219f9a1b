package dto

import (
	"time"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// UpdateRoleRequest payload for role changes.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee admin"`
}

// UserResponse is the wire shape for a directory entry.
type UserResponse struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
