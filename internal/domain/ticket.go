package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. The set is flat:
// any status may follow any other, transitions matter only for timestamp
// stamping and notification triggers.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory classifies what a ticket is about.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "hardware"
	TicketCategorySoftware TicketCategory = "software"
	TicketCategoryNetwork  TicketCategory = "network"
	TicketCategoryEmail    TicketCategory = "email"
	TicketCategoryAccess   TicketCategory = "access"
	TicketCategoryOther    TicketCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork,
		TicketCategoryEmail, TicketCategoryAccess, TicketCategoryOther:
		return true
	}
	return false
}

// TicketNumberPrefix prefixes every human-facing ticket number.
const TicketNumberPrefix = "TKT-"

// FormatTicketNumber renders a sequence value as a ticket number,
// zero-padded to at least four digits. Padding never truncates: values
// past 9999 render at their natural width.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("%s%04d", TicketNumberPrefix, seq)
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Number      string
	Subject     string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Category    TicketCategory
	Department  string
	CreatedBy   string
	AssignedTo  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	ClosedAt    *time.Time
}

// AssignedToID returns the assignee id or "" when unassigned.
func (t *Ticket) AssignedToID() string {
	if t.AssignedTo == nil {
		return ""
	}
	return *t.AssignedTo
}

// TicketStats is the aggregate snapshot served to admin dashboards.
// The per-status counts sum to Total.
type TicketStats struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}
