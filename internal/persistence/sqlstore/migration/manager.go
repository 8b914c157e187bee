package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

type manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and an executor. A nil logger uses slog.Default.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// RunMigrations executes all pending migrations in sequential order.
func (m *manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine pending migrations", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date")
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "pending_count", len(pending))
	for i, migration := range pending {
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
		)

		migrationStarted := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations completed", "applied_count", len(pending), "duration", time.Since(started))
	return nil
}

// GetPendingMigrations returns migrations on disk that are not yet applied,
// after validating the version sequence.
func (m *manager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedSet := make(map[int]struct{}, len(applied))
	for _, a := range applied {
		n, _ := strconv.Atoi(a.Version)
		appliedSet[n] = struct{}{}
	}

	var pending []Migration
	for _, migration := range available {
		n, _ := strconv.Atoi(migration.Version)
		if _, ok := appliedSet[n]; !ok {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// GetStatus reports the current schema version and pending migrations.
func (m *manager) GetStatus(ctx context.Context) (*Status, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	status := &Status{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}

// validateSequence rejects gaps between the lowest and highest available
// version and applied versions that no longer exist on disk.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	versions := make(map[int]struct{}, len(available))
	lowest, highest := -1, -1
	for _, migration := range available {
		n, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version %q is not numeric", ErrInvalidVersion, migration.Version))
		}
		versions[n] = struct{}{}
		if lowest == -1 || n < lowest {
			lowest = n
		}
		if n > highest {
			highest = n
		}
	}

	for n := lowest; lowest != -1 && n <= highest; n++ {
		if _, ok := versions[n]; !ok {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, n)
		}
	}

	for _, a := range applied {
		n, err := strconv.Atoi(a.Version)
		if err != nil {
			return NewDatabaseError(a.Version, "", "validate sequence",
				fmt.Errorf("%w: applied version %q is not numeric", ErrVersionTableCorrupt, a.Version))
		}
		if _, ok := versions[n]; !ok {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, n)
		}
	}
	return nil
}
