package dto

import (
	"time"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high critical"`
	Category    string `json:"category" validate:"required,oneof=hardware software network email access other"`
	Department  string `json:"department" validate:"omitempty,max=120"`
}

// UpdateTicketRequest carries a partial update: absent fields stay
// untouched, an empty assigned_to clears the assignment.
type UpdateTicketRequest struct {
	Subject     *string `json:"subject" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Category    *string `json:"category" validate:"omitempty,oneof=hardware software network email access other"`
	Department  *string `json:"department" validate:"omitempty,max=120"`
	AssignedTo  *string `json:"assigned_to"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required,max=10000"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse is the wire shape for a ticket.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Number      string                `json:"number"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Category    domain.TicketCategory `json:"category"`
	Department  string                `json:"department,omitempty"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// TicketDetailResponse adds the thread and the involved directory rows.
type TicketDetailResponse struct {
	TicketResponse
	Creator  *UserResponse     `json:"creator,omitempty"`
	Assignee *UserResponse     `json:"assignee,omitempty"`
	Comments []CommentResponse `json:"comments"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}
