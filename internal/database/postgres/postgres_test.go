package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsShortCodeConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "short code constraint",
			err:  &pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: shortCodeConstraintName},
			want: true,
		},
		{
			name: "wrapped short code constraint",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: shortCodeConstraintName}),
			want: true,
		},
		{
			name: "unnamed unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationErrCode},
			want: true,
		},
		{
			name: "other unique constraint",
			err:  &pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: "urls_pkey"},
			want: false,
		},
		{
			name: "not null violation",
			err:  &pgconn.PgError{Code: "23502"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isShortCodeConflict(tt.err))
		})
	}
}
