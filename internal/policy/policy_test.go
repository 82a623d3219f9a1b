package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/policy"
)

func ticketFixture() *domain.Ticket {
	assignee := "assignee"
	return &domain.Ticket{ID: 1, CreatedBy: "creator", AssignedTo: &assignee}
}

func TestCanAccess(t *testing.T) {
	admin := domain.Principal{UserID: "boss", Role: domain.RoleAdmin}
	creator := domain.Principal{UserID: "creator", Role: domain.RoleEmployee}
	assignee := domain.Principal{UserID: "assignee", Role: domain.RoleEmployee}
	stranger := domain.Principal{UserID: "stranger", Role: domain.RoleEmployee}

	cases := []struct {
		name      string
		principal domain.Principal
		action    policy.Action
		want      bool
	}{
		{"admin reads", admin, policy.ActionRead, true},
		{"admin updates", admin, policy.ActionUpdate, true},
		{"admin deletes", admin, policy.ActionDelete, true},
		{"admin assigns", admin, policy.ActionAssign, true},
		{"admin comments", admin, policy.ActionComment, true},

		{"creator reads", creator, policy.ActionRead, true},
		{"creator comments", creator, policy.ActionComment, true},
		{"creator cannot update", creator, policy.ActionUpdate, false},
		{"creator cannot delete", creator, policy.ActionDelete, false},
		{"creator cannot assign", creator, policy.ActionAssign, false},

		{"assignee reads", assignee, policy.ActionRead, true},
		{"assignee comments", assignee, policy.ActionComment, true},
		{"assignee updates", assignee, policy.ActionUpdate, true},
		{"assignee cannot delete", assignee, policy.ActionDelete, false},
		{"assignee cannot assign", assignee, policy.ActionAssign, false},

		{"stranger cannot read", stranger, policy.ActionRead, false},
		{"stranger cannot comment", stranger, policy.ActionComment, false},
		{"stranger cannot update", stranger, policy.ActionUpdate, false},
		{"stranger cannot delete", stranger, policy.ActionDelete, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.CanAccess(tc.principal, ticketFixture(), tc.action))
		})
	}
}

func TestCanAccessUnassignedTicket(t *testing.T) {
	ticket := &domain.Ticket{ID: 2, CreatedBy: "creator"}
	former := domain.Principal{UserID: "assignee", Role: domain.RoleEmployee}

	assert.False(t, policy.CanAccess(former, ticket, policy.ActionRead))
	assert.False(t, policy.CanAccess(former, ticket, policy.ActionUpdate))
}

func TestAdminOnlyGates(t *testing.T) {
	admin := domain.Principal{UserID: "boss", Role: domain.RoleAdmin}
	employee := domain.Principal{UserID: "emp", Role: domain.RoleEmployee}

	assert.True(t, policy.CanListAll(admin))
	assert.False(t, policy.CanListAll(employee))
	assert.True(t, policy.CanViewStats(admin))
	assert.False(t, policy.CanViewStats(employee))
	assert.True(t, policy.CanManageUsers(admin))
	assert.False(t, policy.CanManageUsers(employee))
}
