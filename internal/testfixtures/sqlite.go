package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/room-booker/internal/persistence/sqlstore"
)

// SQLiteHarness exposes repositories over a migrated temporary SQLite file.
type SQLiteHarness struct {
	Pool  *sqlstore.ConnectionPool
	Users *sqlstore.UserRepository
	Auth  *sqlstore.AuthRepository
	Rooms *sqlstore.ConferenceRoomRepository
}

// NewSQLiteHarness opens and migrates a fresh database and closes it when the
// test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roombooker.db")
	pool, err := sqlstore.NewConnectionPool(context.Background(), sqlstore.TempFileTestConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := pool.Migrate(context.Background(), logger); err != nil {
		tb.Fatalf("failed to migrate database: %v", err)
	}

	return &SQLiteHarness{
		Pool:  pool,
		Users: sqlstore.NewUserRepository(pool),
		Auth:  sqlstore.NewAuthRepository(pool),
		Rooms: sqlstore.NewConferenceRoomRepository(pool),
	}
}
