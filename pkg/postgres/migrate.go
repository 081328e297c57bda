package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtyMigration is returned when a previous migration failed halfway and
// the schema needs manual repair.
var ErrDirtyMigration = errors.New("database schema is dirty")

// RunMigrations applies all pending up migrations from sourceURL
// (e.g. "file://migrations") and returns the resulting schema version.
func RunMigrations(sourceURL, dsn string) (uint, error) {
	const op = "postgres.RunMigrations"

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: failed to read schema version: %w", op, err)
	}
	if dirty {
		return version, fmt.Errorf("%s: version %d: %w", op, version, ErrDirtyMigration)
	}

	return version, nil
}
