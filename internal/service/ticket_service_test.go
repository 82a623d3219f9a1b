package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/config"
	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/events"
	"github.com/eachn05-lang/Ea-desk/internal/notify"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
	"github.com/eachn05-lang/Ea-desk/internal/service"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// recordingDispatcher captures published events synchronously so tests
// can assert on emission order and count.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	store      *repository.MemoryStore
	dispatcher *recordingDispatcher
	tickets    *service.TicketService
	users      *service.UserService
	stats      *service.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	logger := zap.NewNop()

	stats := service.NewStatsService(store.Tickets(), nil, 0, logger)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
		Stats:       stats,
		Logger:      logger,
	})
	users := service.NewUserService(store.Users(), nil, logger)

	return &fixture{store: store, dispatcher: dispatcher, tickets: tickets, users: users, stats: stats}
}

func (f *fixture) seedUser(t *testing.T, id string, role domain.Role, email string) domain.Principal {
	t.Helper()
	user := &domain.User{ID: id, Email: email, FirstName: id, Role: role}
	require.NoError(t, f.store.Users().Upsert(context.Background(), user))
	return domain.Principal{UserID: id, Role: role}
}

func (f *fixture) createTicket(t *testing.T, principal domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), principal, service.TicketCreateInput{
		Subject:     "printer jammed",
		Description: "paper stuck in tray two",
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.TicketCategoryHardware,
	})
	require.NoError(t, err)
	return ticket
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	domainErr := util.ToDomainError(err)
	require.NotNil(t, domainErr)
	return domainErr.Code
}

func strPtr(s string) *string                                { return &s }
func statusPtr(s domain.TicketStatus) *domain.TicketStatus   { return &s }
func prioPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")

	ticket, err := f.tickets.Create(context.Background(), admin, service.TicketCreateInput{
		Subject:     "VPN unreachable",
		Description: "cannot connect from home office",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryNetwork,
	})
	require.NoError(t, err)

	assert.Equal(t, "TKT-0001", ticket.Number)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryNetwork, ticket.Category)
	assert.Equal(t, "boss", ticket.CreatedBy)
	assert.Nil(t, ticket.AssignedTo)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ClosedAt)
	assert.False(t, ticket.CreatedAt.IsZero())

	created := f.dispatcher.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.Number, created[0].Ticket.Number)
	assert.Equal(t, "boss", created[0].ActorID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	employee := f.seedUser(t, "emp", domain.RoleEmployee, "emp@corp.test")

	_, err := f.tickets.Create(context.Background(), employee, service.TicketCreateInput{
		Subject:  "   ",
		Priority: domain.TicketPriority("urgent"),
		Category: domain.TicketCategoryOther,
	})
	require.Error(t, err)

	domainErr := util.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.ElementsMatch(t, []string{"subject", "description", "priority"}, domainErr.Details["fields"])
	assert.Empty(t, f.dispatcher.ofType(events.EventTicketCreated))
}

func TestTicketNumbersNeverReused(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")

	first := f.createTicket(t, admin)
	second := f.createTicket(t, admin)
	assert.Equal(t, "TKT-0001", first.Number)
	assert.Equal(t, "TKT-0002", second.Number)

	require.NoError(t, f.tickets.Delete(context.Background(), admin, second.ID))

	third := f.createTicket(t, admin)
	assert.Equal(t, "TKT-0003", third.Number)
}

func TestAssignThenResolveFlow(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	assignee := f.seedUser(t, "emp-f", domain.RoleEmployee, "f@corp.test")

	ticket := f.createTicket(t, reporter)

	// Admin assigns the ticket: exactly one assignment event, addressed
	// to the new assignee.
	updated, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		AssignedTo: strPtr(assignee.UserID),
	})
	require.NoError(t, err)
	assert.Equal(t, assignee.UserID, updated.AssignedToID())

	assigned := f.dispatcher.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, assignee.UserID, assigned[0].AssigneeID)
	assert.Equal(t, admin.UserID, assigned[0].ActorID)

	// The assignee resolves it: resolvedAt is stamped, and no further
	// assignment event is emitted at resolution time.
	resolved, err := f.tickets.Update(context.Background(), assignee, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Nil(t, resolved.ClosedAt)

	assert.Len(t, f.dispatcher.ofType(events.EventTicketAssigned), 1)
	assert.Empty(t, f.dispatcher.ofType(events.EventTicketClosed))
}

func TestGetTicketAccess(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	stranger := f.seedUser(t, "emp-s", domain.RoleEmployee, "s@corp.test")

	ticket := f.createTicket(t, reporter)
	_, err := f.tickets.AddComment(context.Background(), reporter, ticket.ID, service.CommentInput{Content: "any update?"})
	require.NoError(t, err)

	detail, err := f.tickets.Get(context.Background(), reporter, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Creator)
	assert.Equal(t, reporter.UserID, detail.Creator.ID)
	assert.Nil(t, detail.Assignee)
	assert.Len(t, detail.Comments, 1)

	_, err = f.tickets.Get(context.Background(), stranger, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.tickets.Get(context.Background(), reporter, 9999)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestUpdateTicketPartialMerge(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	ticket := f.createTicket(t, admin)

	updated, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Priority: prioPtr(domain.TicketPriorityCritical),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
	assert.Equal(t, ticket.Subject, updated.Subject)
	assert.Equal(t, ticket.Description, updated.Description)
	assert.Equal(t, ticket.Category, updated.Category)
	assert.Equal(t, ticket.Status, updated.Status)

	updated, err = f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Subject: strPtr("printer jammed again"),
	})
	require.NoError(t, err)
	assert.Equal(t, "printer jammed again", updated.Subject)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
}

func TestResolvedAtStampedOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	ticket := f.createTicket(t, admin)

	resolved, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	stampedAt := *resolved.ResolvedAt

	// Move away and back; the original stamp survives both transitions.
	reopened, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusOpen),
	})
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.True(t, stampedAt.Equal(*reopened.ResolvedAt))

	again, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, stampedAt.Equal(*again.ResolvedAt))
}

func TestClosedAtStampedOnce(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	ticket := f.createTicket(t, admin)

	closed, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	stampedAt := *closed.ClosedAt
	assert.Len(t, f.dispatcher.ofType(events.EventTicketClosed), 1)

	// Writing closed onto an already-closed ticket changes nothing and
	// stays silent.
	idempotent, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.NotNil(t, idempotent.ClosedAt)
	assert.True(t, stampedAt.Equal(*idempotent.ClosedAt))
	assert.Len(t, f.dispatcher.ofType(events.EventTicketClosed), 1)

	// Reopening and closing again is a genuine transition: it notifies
	// again but never overwrites the first stamp.
	_, err = f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusOpen),
	})
	require.NoError(t, err)

	reclosed, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.NotNil(t, reclosed.ClosedAt)
	assert.True(t, stampedAt.Equal(*reclosed.ClosedAt))
	assert.Len(t, f.dispatcher.ofType(events.EventTicketClosed), 2)
}

func TestClosedEventCarriesCreator(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	ticket := f.createTicket(t, reporter)

	_, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)

	closed := f.dispatcher.ofType(events.EventTicketClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, reporter.UserID, closed[0].Ticket.CreatedBy)
	assert.Equal(t, admin.UserID, closed[0].ActorID)
}

func TestAssignmentEventEdgeCases(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	f.seedUser(t, "emp-a", domain.RoleEmployee, "a@corp.test")
	f.seedUser(t, "emp-b", domain.RoleEmployee, "b@corp.test")
	ticket := f.createTicket(t, admin)
	ctx := context.Background()

	_, err := f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("emp-a")})
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.ofType(events.EventTicketAssigned), 1)

	// Re-assigning the same person is a no-op for notifications.
	_, err = f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("emp-a")})
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.ofType(events.EventTicketAssigned), 1)

	// Handing the ticket to someone else notifies the new assignee.
	_, err = f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("emp-b")})
	require.NoError(t, err)
	assigned := f.dispatcher.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 2)
	assert.Equal(t, "emp-b", assigned[1].AssigneeID)

	// Clearing the assignment emits nothing.
	cleared, err := f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
	assert.Len(t, f.dispatcher.ofType(events.EventTicketAssigned), 2)

	// Unknown assignees are rejected before any write.
	_, err = f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("ghost")})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestUpdateTicketPermissions(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	assignee := f.seedUser(t, "emp-f", domain.RoleEmployee, "f@corp.test")
	ticket := f.createTicket(t, reporter)
	ctx := context.Background()

	// The creator alone may not update.
	_, err := f.tickets.Update(ctx, reporter, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.tickets.Update(ctx, admin, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr(assignee.UserID)})
	require.NoError(t, err)

	// The assignee may move status but not hand the ticket around.
	_, err = f.tickets.Update(ctx, assignee, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)

	_, err = f.tickets.Update(ctx, assignee, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr(reporter.UserID)})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.tickets.Update(ctx, assignee, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr("")})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestUpdateTicketValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	ticket := f.createTicket(t, admin)

	_, err := f.tickets.Update(context.Background(), admin, ticket.ID, service.TicketUpdateInput{
		Status:  statusPtr(domain.TicketStatus("archived")),
		Subject: strPtr("  "),
	})
	require.Error(t, err)

	domainErr := util.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.ElementsMatch(t, []string{"status", "subject"}, domainErr.Details["fields"])
}

func TestListTicketsScope(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	other := f.seedUser(t, "emp-f", domain.RoleEmployee, "f@corp.test")
	ctx := context.Background()

	mine := f.createTicket(t, reporter)
	theirs := f.createTicket(t, other)
	f.createTicket(t, admin)

	// Assign the other employee's ticket to the reporter; list scope is
	// still createdBy only.
	_, err := f.tickets.Update(ctx, admin, theirs.ID, service.TicketUpdateInput{AssignedTo: strPtr(reporter.UserID)})
	require.NoError(t, err)

	visible, err := f.tickets.List(ctx, reporter, service.TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)

	// A non-admin cannot widen the scope with filters.
	otherID := other.UserID
	visible, err = f.tickets.List(ctx, reporter, service.TicketListFilter{CreatedBy: &otherID})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)

	all, err := f.tickets.List(ctx, admin, service.TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assignedToReporter := reporter.UserID
	filtered, err := f.tickets.List(ctx, admin, service.TicketListFilter{AssignedTo: &assignedToReporter})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, theirs.ID, filtered[0].ID)
}

func TestListTicketsStatusFilter(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	ctx := context.Background()

	open := f.createTicket(t, admin)
	closed := f.createTicket(t, admin)
	_, err := f.tickets.Update(ctx, admin, closed.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)

	listed, err := f.tickets.List(ctx, admin, service.TicketListFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
	})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, open.ID, listed[0].ID)
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	ticket := f.createTicket(t, reporter)
	ctx := context.Background()

	_, err := f.tickets.AddComment(ctx, reporter, ticket.ID, service.CommentInput{Content: "please hurry"})
	require.NoError(t, err)

	// Not even the creator may delete.
	err = f.tickets.Delete(ctx, reporter, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	require.NoError(t, f.tickets.Delete(ctx, admin, ticket.ID))

	_, err = f.tickets.Get(ctx, admin, ticket.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))

	// The thread went with the ticket.
	comments, err := f.store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	err = f.tickets.Delete(ctx, admin, ticket.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "boss", domain.RoleAdmin, "boss@corp.test")
	reporter := f.seedUser(t, "emp-e", domain.RoleEmployee, "e@corp.test")
	stranger := f.seedUser(t, "emp-s", domain.RoleEmployee, "s@corp.test")
	ticket := f.createTicket(t, reporter)
	ctx := context.Background()

	comment, err := f.tickets.AddComment(ctx, reporter, ticket.ID, service.CommentInput{Content: " restarting helped \n"})
	require.NoError(t, err)
	assert.Equal(t, "restarting helped", comment.Content)
	assert.Equal(t, reporter.UserID, comment.UserID)
	assert.False(t, comment.IsInternal)

	_, err = f.tickets.AddComment(ctx, reporter, ticket.ID, service.CommentInput{Content: "   "})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.tickets.AddComment(ctx, stranger, ticket.ID, service.CommentInput{Content: "me too"})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	// Only admins can mark a comment internal; for everyone else the
	// flag is silently dropped.
	fromReporter, err := f.tickets.AddComment(ctx, reporter, ticket.ID, service.CommentInput{Content: "internal?", IsInternal: true})
	require.NoError(t, err)
	assert.False(t, fromReporter.IsInternal)

	fromAdmin, err := f.tickets.AddComment(ctx, admin, ticket.ID, service.CommentInput{Content: "vendor called", IsInternal: true})
	require.NoError(t, err)
	assert.True(t, fromAdmin.IsInternal)
}

// captureTransport lets tests wait for asynchronously delivered messages.
type captureTransport struct {
	sent chan notify.Message
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{sent: make(chan notify.Message, 16)}
}

func (c *captureTransport) Send(_ context.Context, msg notify.Message) error {
	c.sent <- msg
	return nil
}

func (c *captureTransport) next(t *testing.T) notify.Message {
	t.Helper()
	select {
	case msg := <-c.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notify.Message{}
	}
}

// End-to-end flow through the channel dispatcher: the assignment mail
// reaches the assignee when the assignment happens, and resolving later
// sends nothing.
func TestAssignmentNotificationDelivery(t *testing.T) {
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	ctx := context.Background()

	transport := newCaptureTransport()
	notifier := service.NewNotificationService(store.Users(), transport, logger, nil, config.NotificationConfig{
		EmailFrom: "helpdesk@corp.test",
	})
	dispatcher := events.NewChannelDispatcher(logger, nil, 16)
	notifier.Register(dispatcher)
	dispatcher.Start()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	admin := &domain.User{ID: "boss", Email: "boss@corp.test", Role: domain.RoleAdmin}
	reporter := &domain.User{ID: "emp-e", Email: "e@corp.test", Role: domain.RoleEmployee}
	assignee := &domain.User{ID: "emp-f", Email: "f@corp.test", Role: domain.RoleEmployee}
	for _, u := range []*domain.User{admin, reporter, assignee} {
		require.NoError(t, store.Users().Upsert(ctx, u))
	}

	ticket, err := tickets.Create(ctx, domain.Principal{UserID: reporter.ID, Role: domain.RoleEmployee}, service.TicketCreateInput{
		Subject:     "laptop battery swollen",
		Description: "needs replacement",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryHardware,
	})
	require.NoError(t, err)

	createdMsg := transport.next(t)
	assert.Equal(t, []string{"boss@corp.test"}, createdMsg.To)
	assert.Equal(t, "helpdesk@corp.test", createdMsg.From)
	assert.Contains(t, createdMsg.Subject, ticket.Number)

	adminPrincipal := domain.Principal{UserID: admin.ID, Role: domain.RoleAdmin}
	_, err = tickets.Update(ctx, adminPrincipal, ticket.ID, service.TicketUpdateInput{AssignedTo: strPtr(assignee.ID)})
	require.NoError(t, err)

	assignedMsg := transport.next(t)
	assert.Equal(t, []string{"f@corp.test"}, assignedMsg.To)
	assert.Contains(t, assignedMsg.Subject, "assigned")

	assigneePrincipal := domain.Principal{UserID: assignee.ID, Role: domain.RoleEmployee}
	_, err = tickets.Update(ctx, assigneePrincipal, ticket.ID, service.TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)

	// Close drains everything still in flight; resolution must not have
	// produced a message.
	dispatcher.Close()
	select {
	case msg := <-transport.sent:
		t.Fatalf("unexpected notification after resolve: %q", msg.Subject)
	default:
	}
}
