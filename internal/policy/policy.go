// Package policy holds the access decisions for tickets and directory
// operations. Decisions are pure functions of the principal and the
// target: no store access, no error returns. Callers translate a false
// into the generic access-denied error.
package policy

import "github.com/eachn05-lang/Ea-desk/internal/domain"

// Action is what the caller wants to do with a ticket.
type Action string

const (
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAssign  Action = "assign"
	ActionComment Action = "comment"
)

// CanAccess decides whether the principal may perform action on the
// ticket. Admins may do anything; creators and assignees read and
// comment; assignees additionally update. Assignment and deletion stay
// admin-only.
func CanAccess(p domain.Principal, t *domain.Ticket, action Action) bool {
	if p.IsAdmin() {
		return true
	}
	switch action {
	case ActionRead, ActionComment:
		return isCreator(p, t) || isAssignee(p, t)
	case ActionUpdate:
		return isAssignee(p, t)
	case ActionDelete, ActionAssign:
		return false
	}
	return false
}

// CanListAll reports whether the principal may list tickets beyond the
// ones they created.
func CanListAll(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanViewStats gates the aggregate dashboard.
func CanViewStats(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanManageUsers gates the team directory and role changes.
func CanManageUsers(p domain.Principal) bool {
	return p.IsAdmin()
}

func isCreator(p domain.Principal, t *domain.Ticket) bool {
	return t.CreatedBy == p.UserID
}

func isAssignee(p domain.Principal, t *domain.Ticket) bool {
	return t.AssignedTo != nil && *t.AssignedTo == p.UserID
}
