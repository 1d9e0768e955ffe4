package sqlstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/testutils"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// openTestDB opens a fresh SQLite file under t.TempDir, applies the owned
// migrations and the host schema fixture, and closes it on cleanup.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, config.DatabaseConfig{
		Driver:          DriverSQLite,
		URL:             filepath.Join(t.TempDir(), "duewatch_test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := NewMigrator(db, discardLogger())
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	testutils.ApplyHostSchema(t, db)
	return db
}

func mustExec(t *testing.T, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	testutils.Exec(t, db, query, args...)
}
