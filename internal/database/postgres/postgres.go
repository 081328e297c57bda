package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationErrCode  = "23505"
	shortCodeConstraintName = "urls_short_code_key"
)

// isShortCodeConflict reports whether err is a unique violation on urls.short_code.
// Violations without a constraint name also count.
func isShortCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.SQLState() != uniqueViolationErrCode {
		return false
	}

	return pgErr.ConstraintName == "" || pgErr.ConstraintName == shortCodeConstraintName
}
