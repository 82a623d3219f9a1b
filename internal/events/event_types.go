package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// EventType enumerates the lifecycle events that trigger notifications.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketAssigned EventType = "ticket_assigned"
	EventTicketClosed   EventType = "ticket_closed"
)

// TicketSnapshot freezes the ticket fields notification rendering needs.
// Events may be delivered long after the triggering request (the durable
// queue replays them), so they carry data instead of row references.
type TicketSnapshot struct {
	ID         int64                 `json:"id"`
	Number     string                `json:"number"`
	Subject    string                `json:"subject"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	Category   domain.TicketCategory `json:"category"`
	Department string                `json:"department,omitempty"`
	CreatedBy  string                `json:"created_by"`
	AssignedTo string                `json:"assigned_to,omitempty"`
}

// SnapshotTicket captures the notification-relevant fields of a ticket.
func SnapshotTicket(t *domain.Ticket) TicketSnapshot {
	return TicketSnapshot{
		ID:         t.ID,
		Number:     t.Number,
		Subject:    t.Subject,
		Status:     t.Status,
		Priority:   t.Priority,
		Category:   t.Category,
		Department: t.Department,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedToID(),
	}
}

// Event is one lifecycle occurrence. The whole struct round-trips
// through JSON unchanged.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Ticket     TicketSnapshot `json:"ticket"`
	ActorID    string         `json:"actor_id"`
	AssigneeID string         `json:"assignee_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewTicketCreated builds the event emitted after a ticket insert.
func NewTicketCreated(t *domain.Ticket, actorID string) Event {
	return newEvent(EventTicketCreated, t, actorID, "")
}

// NewTicketAssigned builds the event emitted when a ticket gains a new,
// non-empty assignee.
func NewTicketAssigned(t *domain.Ticket, actorID, assigneeID string) Event {
	return newEvent(EventTicketAssigned, t, actorID, assigneeID)
}

// NewTicketClosed builds the event emitted when a ticket moves into
// closed from another status.
func NewTicketClosed(t *domain.Ticket, actorID string) Event {
	return newEvent(EventTicketClosed, t, actorID, "")
}

func newEvent(eventType EventType, t *domain.Ticket, actorID, assigneeID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Ticket:     SnapshotTicket(t),
		ActorID:    actorID,
		AssigneeID: assigneeID,
		OccurredAt: time.Now().UTC(),
	}
}
