package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// Pagination defaults for ticket listings.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Attempts at allocating a ticket number before giving up. The sequence
// makes collisions impossible in practice; the retry covers manual rows.
const maxNumberAttempts = 3

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var ticketColumns = []string{
	"id", "ticket_number", "subject", "description", "priority", "status",
	"category", "department", "created_by", "assigned_to",
	"created_at", "updated_at", "resolved_at", "closed_at",
}

// TicketFilter narrows ticket listings. Nil pointer fields and empty
// slices mean "any".
type TicketFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Create allocates the
// ticket number; callers never supply one.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (*domain.TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// Create inserts the ticket under a freshly allocated number. The store
// sequence never rewinds, so numbers are never reused even after
// deletes. A unique index backstops the sequence; on collision the
// insert retries with the next value.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const insertQuery = `
        INSERT INTO tickets (ticket_number, subject, description, priority, status, category, department, created_by, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		var seq int64
		if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		ticket.Number = domain.FormatTicketNumber(seq)

		err := r.pool.QueryRow(ctx, insertQuery,
			ticket.Number,
			ticket.Subject,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.Category,
			ticket.Department,
			ticket.CreatedBy,
			ticket.AssignedTo,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
	}
	return ErrNumberExhausted
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_number, subject, description, priority, status, category, department,
               created_by, assigned_to, created_at, updated_at, resolved_at, closed_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.Department,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	builder := psql.Select(ticketColumns...).From("tickets")

	if filter.CreatedBy != nil {
		builder = builder.Where(sq.Eq{"created_by": *filter.CreatedBy})
	}
	if filter.AssignedTo != nil {
		builder = builder.Where(sq.Eq{"assigned_to": *filter.AssignedTo})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if len(filter.Priorities) > 0 {
		builder = builder.Where(sq.Eq{"priority": filter.Priorities})
	}
	if len(filter.Categories) > 0 {
		builder = builder.Where(sq.Eq{"category": filter.Categories})
	}

	builder = builder.
		OrderBy("updated_at DESC", "id DESC").
		Limit(uint64(normalizeLimit(filter.Limit))).
		Offset(uint64(normalizeOffset(filter.Offset)))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Update persists the merged ticket row. Lifecycle decisions (which
// fields change, timestamp stamping) happen in the service; this writes
// every mutable column.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, status=$4, category=$5,
            department=$6, assigned_to=$7, resolved_at=$8, closed_at=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.Department,
		ticket.AssignedTo,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return notFoundIfNoRows(err)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus aggregates the dashboard counts in one round trip, so
// the per-status numbers and the total come from the same snapshot.
func (r *ticketRepository) CountByStatus(ctx context.Context) (*domain.TicketStats, error) {
	builder := psql.Select("COUNT(*)").
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ?)", domain.TicketStatusOpen)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ?)", domain.TicketStatusInProgress)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ?)", domain.TicketStatusResolved)).
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ?)", domain.TicketStatusClosed)).
		From("tickets")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var stats domain.TicketStats
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Open,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.Category,
			&ticket.Department,
			&ticket.CreatedBy,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
