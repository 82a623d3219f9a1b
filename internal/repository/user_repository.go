package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
)

// UserRepository defines persistence access for the user directory.
// UpdateRole refuses to demote the only remaining admin and reports that
// with ErrLastAdmin; the guard lives in the store so concurrent demotions
// cannot race past it.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Upsert provisions a directory row from identity claims. Profile fields
// follow the claims on every call; role is written only on first insert,
// afterwards the directory row is authoritative.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, first_name, last_name, role, department)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET
            email=EXCLUDED.email,
            first_name=EXCLUDED.first_name,
            last_name=EXCLUDED.last_name,
            department=EXCLUDED.department,
            updated_at=NOW()
        RETURNING role, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Department,
	).Scan(&user.Role, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, email, first_name, last_name, role, department, created_at, updated_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Department,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
        SELECT id, email, first_name, last_name, role, department, created_at, updated_at
        FROM users ORDER BY first_name, last_name, id`
	return r.queryUsers(ctx, query)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	const query = `
        SELECT id, email, first_name, last_name, role, department, created_at, updated_at
        FROM users WHERE role=$1 ORDER BY first_name, last_name, id`
	return r.queryUsers(ctx, query, role)
}

// UpdateRole changes one user's role. The WHERE clause refuses a
// demotion that would leave zero admins, which keeps the guard atomic
// under concurrent requests.
func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	const query = `
        UPDATE users u SET role=$2, updated_at=NOW()
        WHERE u.id=$1
          AND NOT ($2='employee' AND u.role='admin' AND NOT EXISTS (
              SELECT 1 FROM users o WHERE o.role='admin' AND o.id <> u.id))
        RETURNING id, email, first_name, last_name, role, department, created_at, updated_at`

	var user domain.User
	err := r.pool.QueryRow(ctx, query, id, role).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Department,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == nil {
		return &user, nil
	}
	if err = notFoundIfNoRows(err); err != ErrNotFound {
		return nil, err
	}

	// No row updated: either the user is gone or the guard tripped.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Role == domain.RoleAdmin && role == domain.RoleEmployee {
		return nil, ErrLastAdmin
	}
	return nil, ErrNotFound
}

func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&count)
	return count, err
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.Department,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
