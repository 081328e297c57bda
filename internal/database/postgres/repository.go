package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

const defaultQueryTimeout = 3 * time.Second

type urlRecord struct {
	ID          int64        `db:"id"`
	ShortCode   string       `db:"short_code"`
	OriginalURL string       `db:"original_url"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CreatedAt:   r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time
		url.ExpiresAt = &expiresAt
	}

	return url
}

type RepositoryOption func(*URLRepository)

// WithQueryTimeout bounds every query issued by the repository.
func WithQueryTimeout(d time.Duration) RepositoryOption {
	return func(r *URLRepository) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

type URLRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewURLRepository(db *sqlx.DB, opts ...RepositoryOption) *URLRepository {
	r := &URLRepository{
		db:           db,
		queryTimeout: defaultQueryTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, short_code, original_url, expires_at, created_at`

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, exp)
	if err != nil {
		if isShortCodeConflict(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rec := new(urlRecord)
	query := `SELECT id, short_code, original_url, expires_at, created_at
		FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.URLRepository.ExistsByShortCode"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check url record: %w", op, err)
	}

	return exists, nil
}

// GetByShortCodeNotExpired returns a record that has no expiration date or
// expires in the future, compared against the database clock.
func (r *URLRepository) GetByShortCodeNotExpired(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCodeNotExpired"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rec := new(urlRecord)
	query := `SELECT id, short_code, original_url, expires_at, created_at
		FROM urls
		WHERE short_code = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.URL, error) {
	const op = "database.postgres.URLRepository.ListExpired"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var recs []urlRecord
	query := `SELECT id, short_code, original_url, expires_at, created_at
		FROM urls
		WHERE expires_at IS NOT NULL AND expires_at < $1`

	if err := r.db.SelectContext(ctx, &recs, query, now); err != nil {
		return nil, fmt.Errorf("%s: failed to list expired url records: %w", op, err)
	}

	urls := make([]*models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, recs[i].ToURL())
	}

	return urls, nil
}

func (r *URLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "database.postgres.URLRepository.DeleteExpired"

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := `DELETE FROM urls
		WHERE expires_at IS NOT NULL AND expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete expired url records: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected, nil
}
