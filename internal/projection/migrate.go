package projection

import (
	"embed"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate brings the projection schema up to the latest embedded migration.
// Safe to call on every startup; golang-migrate no-ops when already current.
func Migrate(dsn string) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("projection: loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, withPgxScheme(dsn))
	if err != nil {
		return fmt.Errorf("projection: preparing migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("projection: running migrations: %w", err)
	}

	log.Info("Projection schema up to date")
	return nil
}

// withPgxScheme rewrites a plain postgres DSN into the "pgx5://" scheme
// golang-migrate's pgx5 database driver expects.
func withPgxScheme(dsn string) string {
	return "pgx5://" + trimScheme(dsn)
}

func trimScheme(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://", "pgx5://"} {
		if len(dsn) >= len(prefix) && dsn[:len(prefix)] == prefix {
			return dsn[len(prefix):]
		}
	}
	return dsn
}
