package sqlstore

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/room-booker/internal/persistence/sqlstore/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the migration manager for the embedded schema files.
func (cp *ConnectionPool) Migrations(logger *slog.Logger) migration.Manager {
	scanner := migration.NewFileScanner(migrationFiles, "migrations")
	return migration.NewManager(scanner, migration.NewSQLExecutor(cp.db), logger)
}

// Migrate applies every pending embedded migration.
func (cp *ConnectionPool) Migrate(ctx context.Context, logger *slog.Logger) error {
	return cp.Migrations(logger).RunMigrations(ctx)
}
