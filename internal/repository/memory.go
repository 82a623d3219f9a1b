package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// MemoryStore keeps the whole data set in process memory. It backs the
// service when no Postgres DSN is configured and is the substrate for
// service-level tests. Semantics mirror the Postgres repositories,
// including the never-rewinding ticket number sequence and the
// last-admin guard.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]domain.User
	tickets    map[int64]domain.Ticket
	comments   map[int64][]domain.Comment
	ticketSeq  int64
	commentSeq int64
	numberSeq  int64
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		tickets:  make(map[int64]domain.Ticket),
		comments: make(map[int64][]domain.Comment),
	}
}

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return &memoryTicketRepository{store: s} }

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return &memoryUserRepository{store: s} }

// Comments returns the comment repository view of the store.
func (s *MemoryStore) Comments() CommentRepository { return &memoryCommentRepository{store: s} }

type memoryTicketRepository struct {
	store *MemoryStore
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.numberSeq++
	s.ticketSeq++
	now := time.Now()

	ticket.ID = s.ticketSeq
	ticket.Number = domain.FormatTicketNumber(s.numberSeq)
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Ticket
	for _, ticket := range s.tickets {
		if !matchTicket(ticket, filter) {
			continue
		}
		matched = append(matched, cloneTicket(ticket))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	offset := normalizeOffset(filter.Offset)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit := normalizeLimit(filter.Limit); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[ticket.ID]; !ok {
		return ErrNotFound
	}
	ticket.UpdatedAt = time.Now()
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(s.tickets, id)
	delete(s.comments, id)
	return nil
}

func (r *memoryTicketRepository) CountByStatus(_ context.Context) (*domain.TicketStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats domain.TicketStats
	for _, ticket := range s.tickets {
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusResolved:
			stats.Resolved++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
	}
	return &stats, nil
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Upsert(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.users[user.ID]; ok {
		existing.Email = user.Email
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.Department = user.Department
		existing.UpdatedAt = now
		s.users[user.ID] = existing
		*user = existing
		return nil
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := user
	return &out, nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	return r.listWhere(func(domain.User) bool { return true })
}

func (r *memoryUserRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	return r.listWhere(func(u domain.User) bool { return u.Role == role })
}

func (r *memoryUserRepository) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if user.Role == domain.RoleAdmin && role == domain.RoleEmployee {
		others := 0
		for otherID, other := range s.users {
			if otherID != id && other.Role == domain.RoleAdmin {
				others++
			}
		}
		if others == 0 {
			return nil, ErrLastAdmin
		}
	}

	user.Role = role
	user.UpdatedAt = time.Now()
	s.users[id] = user
	out := user
	return &out, nil
}

func (r *memoryUserRepository) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, user := range s.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *memoryUserRepository) listWhere(keep func(domain.User) bool) ([]domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.User
	for _, user := range s.users {
		if keep(user) {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.ID < b.ID
	})
	return result, nil
}

type memoryCommentRepository struct {
	store *MemoryStore
}

func (r *memoryCommentRepository) Create(_ context.Context, comment *domain.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[comment.TicketID]; !ok {
		return ErrNotFound
	}

	s.commentSeq++
	comment.ID = s.commentSeq
	comment.CreatedAt = time.Now()
	s.comments[comment.TicketID] = append(s.comments[comment.TicketID], *comment)
	return nil
}

func (r *memoryCommentRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.comments[ticketID]
	result := make([]domain.Comment, len(thread))
	copy(result, thread)
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func matchTicket(t domain.Ticket, f TicketFilter) bool {
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.AssignedTo != nil && t.AssignedToID() != *f.AssignedTo {
		return false
	}
	if len(f.Statuses) > 0 && !containsFold(statusStrings(f.Statuses), string(t.Status)) {
		return false
	}
	if len(f.Priorities) > 0 && !containsFold(priorityStrings(f.Priorities), string(t.Priority)) {
		return false
	}
	if len(f.Categories) > 0 && !containsFold(categoryStrings(f.Categories), string(t.Category)) {
		return false
	}
	return true
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		t.AssignedTo = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		t.ResolvedAt = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		t.ClosedAt = &v
	}
	return t
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func statusStrings(in []domain.TicketStatus) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func priorityStrings(in []domain.TicketPriority) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func categoryStrings(in []domain.TicketCategory) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
