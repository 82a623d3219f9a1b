package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/events"
	"github.com/eachn05-lang/Ea-desk/internal/policy"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// TicketService is the lifecycle engine: it owns field merging,
// timestamp stamping and event emission. Policy denials come back as the
// generic forbidden error, validation failures name their fields, and
// events leave only after the store write succeeded.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	stats      *StatsService
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Stats       *StatsService
	Logger      *zap.Logger
}

// TicketCreateInput describes the ticket creation payload. The creator
// always comes from the principal, never from the payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	Department  string
}

// TicketUpdateInput carries a partial update: nil fields stay untouched.
// An empty AssignedTo clears the assignment.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Category    *domain.TicketCategory
	Department  *string
	AssignedTo  *string
}

// CommentInput describes a new thread entry.
type CommentInput struct {
	Content    string
	IsInternal bool
}

// TicketListFilter narrows listings. CreatedBy and AssignedTo are only
// honored for admins; everyone else is pinned to their own tickets.
type TicketListFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	Limit      int
	Offset     int
}

// TicketDetail is the full read model for a single ticket.
type TicketDetail struct {
	Ticket   domain.Ticket
	Creator  *domain.User
	Assignee *domain.User
	Comments []domain.Comment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		stats:      deps.Stats,
		logger:     deps.Logger,
	}
}

// Create validates the fields, allocates a number through the store and
// emits TicketCreated once the row exists.
func (s *TicketService) Create(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		Category:    input.Category,
		Department:  strings.TrimSpace(input.Department),
		CreatedBy:   principal.UserID,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.mapStoreError(err, "ticket")
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.NewTicketCreated(ticket, principal.UserID))
	return ticket, nil
}

// List returns tickets visible to the principal. Admins see everything
// and may narrow by creator or assignee; everyone else sees only the
// tickets they created.
func (s *TicketService) List(ctx context.Context, principal domain.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Categories: filter.Categories,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if policy.CanListAll(principal) {
		repoFilter.CreatedBy = filter.CreatedBy
		repoFilter.AssignedTo = filter.AssignedTo
	} else {
		createdBy := principal.UserID
		repoFilter.CreatedBy = &createdBy
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return tickets, nil
}

// Get loads one ticket with its thread and the involved directory rows.
func (s *TicketService) Get(ctx context.Context, principal domain.Principal, id int64) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "ticket")
	}
	if !policy.CanAccess(principal, ticket, policy.ActionRead) {
		return nil, util.NewForbidden()
	}

	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, util.MapError(err)
	}

	detail := &TicketDetail{Ticket: *ticket, Comments: comments}
	if detail.Creator, err = s.lookupUser(ctx, ticket.CreatedBy); err != nil {
		return nil, err
	}
	if assignee := ticket.AssignedToID(); assignee != "" {
		if detail.Assignee, err = s.lookupUser(ctx, assignee); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// Update applies a partial update. Status entering resolved or closed
// stamps the matching timestamp exactly once; a new non-empty assignee
// triggers TicketAssigned; entering closed triggers TicketClosed. Events
// go out only after the write succeeded.
func (s *TicketService) Update(ctx context.Context, principal domain.Principal, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := validateUpdateInput(input); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "ticket")
	}
	if !policy.CanAccess(principal, ticket, policy.ActionUpdate) {
		return nil, util.NewForbidden()
	}
	if input.AssignedTo != nil && !policy.CanAccess(principal, ticket, policy.ActionAssign) {
		return nil, util.NewForbidden()
	}
	if input.AssignedTo != nil && *input.AssignedTo != "" {
		if err := s.ensureUserExists(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	priorStatus := ticket.Status
	priorAssignee := ticket.AssignedToID()

	if input.Subject != nil {
		ticket.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}
	if input.Department != nil {
		ticket.Department = strings.TrimSpace(*input.Department)
	}
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee := *input.AssignedTo
			ticket.AssignedTo = &assignee
		}
	}

	now := time.Now()
	closedNow := ticket.Status == domain.TicketStatusClosed && priorStatus != domain.TicketStatusClosed
	if ticket.Status == domain.TicketStatusResolved && priorStatus != domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = &now
	}
	if closedNow && ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}
	newAssignee := ticket.AssignedToID()
	assignedNow := newAssignee != "" && newAssignee != priorAssignee

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapStoreError(err, "ticket")
	}
	s.invalidateStats(ctx)

	if closedNow {
		s.publishEvent(ctx, events.NewTicketClosed(ticket, principal.UserID))
	}
	if assignedNow {
		s.publishEvent(ctx, events.NewTicketAssigned(ticket, principal.UserID, newAssignee))
	}
	return ticket, nil
}

// Delete removes a ticket and, through the store, its thread.
func (s *TicketService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return s.mapStoreError(err, "ticket")
	}
	if !policy.CanAccess(principal, ticket, policy.ActionDelete) {
		return util.NewForbidden()
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return s.mapStoreError(err, "ticket")
	}
	s.invalidateStats(ctx)
	return nil
}

// AddComment appends a thread entry. The internal flag is honored only
// for admins; everyone else always posts regular comments.
func (s *TicketService) AddComment(ctx context.Context, principal domain.Principal, ticketID int64, input CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, util.NewValidationError("invalid comment", map[string]any{"fields": []string{"content"}})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, s.mapStoreError(err, "ticket")
	}
	if !policy.CanAccess(principal, ticket, policy.ActionComment) {
		return nil, util.NewForbidden()
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		UserID:     principal.UserID,
		Content:    content,
		IsInternal: input.IsInternal && principal.IsAdmin(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, s.mapStoreError(err, "comment")
	}
	return comment, nil
}

func (s *TicketService) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		// A dangling reference is tolerated on reads.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, util.MapError(err)
	}
	return user, nil
}

func (s *TicketService) ensureUserExists(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return util.NewValidationError("unknown assignee", map[string]any{"fields": []string{"assigned_to"}})
		}
		return util.MapError(err)
	}
	return nil
}

func (s *TicketService) mapStoreError(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return util.NewNotFound(resource)
	case errors.Is(err, repository.ErrNumberExhausted):
		return util.NewConflict("ticket number allocation failed, try again", nil)
	}
	return util.MapError(err)
}

// publishEvent hands the event to the dispatcher. The write already
// committed, so failures here are logged and never surfaced.
func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event publish failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	s.stats.Invalidate(ctx)
}

func validateCreateInput(input TicketCreateInput) error {
	var fields []string
	if strings.TrimSpace(input.Subject) == "" {
		fields = append(fields, "subject")
	}
	if strings.TrimSpace(input.Description) == "" {
		fields = append(fields, "description")
	}
	if !input.Priority.Valid() {
		fields = append(fields, "priority")
	}
	if !input.Category.Valid() {
		fields = append(fields, "category")
	}
	if len(fields) > 0 {
		return util.NewValidationError("invalid ticket fields", map[string]any{"fields": fields})
	}
	return nil
}

func validateUpdateInput(input TicketUpdateInput) error {
	var fields []string
	if input.Subject != nil && strings.TrimSpace(*input.Subject) == "" {
		fields = append(fields, "subject")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		fields = append(fields, "description")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		fields = append(fields, "priority")
	}
	if input.Status != nil && !input.Status.Valid() {
		fields = append(fields, "status")
	}
	if input.Category != nil && !input.Category.Valid() {
		fields = append(fields, "category")
	}
	if len(fields) > 0 {
		return util.NewValidationError("invalid ticket fields", map[string]any{"fields": fields})
	}
	return nil
}
