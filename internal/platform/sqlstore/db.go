package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/duewatch/internal/config"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// sqlitePragmas are appended to every SQLite DSN. WAL with a busy timeout
// lets the scheduler's jobs write concurrently without SQLITE_BUSY, and the
// sqlite time format keeps stored timestamps lexically comparable.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=foreign_keys(1)",
	"_time_format=sqlite",
}

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open establishes a connection pool for cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sqlx.DB, error) {
	dsn := cfg.URL
	switch cfg.Driver {
	case DriverSQLite:
		dsn = sqliteDSN(cfg.URL)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", slog.String("driver", cfg.Driver))
	return db, nil
}

// sqliteDSN appends the connection pragmas to a file path or file: URI,
// leaving any query parameters the caller already set in place.
func sqliteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(sqlitePragmas, "&")
}
