package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation detects a Postgres unique-constraint error so callers
// can translate it into a conflict instead of leaking driver text.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// non-pgx drivers in tests
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
