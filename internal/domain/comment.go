package domain

import "time"

// Comment is one entry in a ticket's discussion thread. Internal comments
// are flagged for presentation only; reads return them to anyone who can
// see the ticket.
type Comment struct {
	ID         int64
	TicketID   int64
	UserID     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
