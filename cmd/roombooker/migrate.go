package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/room-booker/internal/config"
	"github.com/example/room-booker/internal/logging"
	"github.com/example/room-booker/internal/persistence/sqlstore"
	"github.com/example/room-booker/internal/persistence/sqlstore/migration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), slog.LevelInfo)
			return withDatabase(cmd.Context(), func(pool *sqlstore.ConnectionPool) error {
				return runMigrations(cmd.Context(), pool, logger)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), slog.LevelWarn)
			return withDatabase(cmd.Context(), func(pool *sqlstore.ConnectionPool) error {
				status, err := pool.Migrations(logger).GetStatus(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read migration status: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), status)
			})
		},
	})
	return cmd
}

func withDatabase(ctx context.Context, fn func(pool *sqlstore.ConnectionPool) error) error {
	driver, dsn, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	pool, err := sqlstore.NewConnectionPool(ctx, sqlstore.DefaultConfig(driver, dsn))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

// runMigrations applies pending migrations and logs the schema version before
// and after.
func runMigrations(ctx context.Context, pool *sqlstore.ConnectionPool, logger *slog.Logger) error {
	logger = logger.With("component", "migrations", "driver", pool.Driver())
	manager := pool.Migrations(logger)

	logger.InfoContext(ctx, "checking current database schema version")
	before, err := manager.GetStatus(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read migration status", "error", err)
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	if before.PendingCount == 0 {
		logger.InfoContext(ctx, "database schema is up to date", "version", before.CurrentVersion)
		return nil
	}

	logger.InfoContext(ctx, "executing database migrations",
		"current_version", before.CurrentVersion,
		"pending", before.PendingCount,
	)
	started := time.Now()
	if err := manager.RunMigrations(ctx); err != nil {
		logger.ErrorContext(ctx, "database migrations failed", "error", err)
		return err
	}

	after, err := manager.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify migration status: %w", err)
	}
	logger.InfoContext(ctx, "database migrations completed successfully",
		"version", after.CurrentVersion,
		"duration", time.Since(started),
	)
	return nil
}

func printStatus(w io.Writer, status *migration.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	current := status.CurrentVersion
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(tw, "current version:\t%s\n", current)
	fmt.Fprintf(tw, "pending:\t%d\n", status.PendingCount)
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(tw, "applied\t%s\t%s\n", applied.Version, applied.AppliedAt.UTC().Format(time.RFC3339))
	}
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(tw, "pending\t%s\t%s\n", pending.Version, pending.Description)
	}
	return tw.Flush()
}
