// Package repository holds the persistence interfaces and their Postgres
// and in-memory implementations. Implementations translate store-native
// errors into the sentinels below so services never import a driver.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("not found")

	// ErrLastAdmin reports a role change that would leave the directory
	// with no admin.
	ErrLastAdmin = errors.New("last admin")

	// ErrNumberExhausted reports that ticket number allocation kept
	// colliding past the retry budget.
	ErrNumberExhausted = errors.New("ticket number allocation exhausted")
)

// notFoundIfNoRows maps pgx's no-rows sentinel to ErrNotFound.
func notFoundIfNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation reports a Postgres unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
