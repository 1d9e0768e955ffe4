package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationStatus is one line of migration status output.
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

// Migrator applies the schema the alerting engine owns (sent_alerts and
// job_runs). It never touches host-application tables.
type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

// NewMigrator builds a goose provider for db's driver over the embedded
// migration files.
func NewMigrator(db *sqlx.DB, logger *slog.Logger) (*Migrator, error) {
	var dialect goose.Dialect
	switch db.DriverName() {
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	case DriverPostgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("no migration dialect for driver %q", db.DriverName())
	}

	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	logger = logger.With(slog.String("component", "migrations"))
	provider, err := goose.NewProvider(dialect, db.DB, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.logger.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path),
			slog.Duration("duration", r.Duration))
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	m.logger.Info("rolled back migration",
		slog.Int64("version", r.Source.Version),
		slog.String("path", r.Source.Path))
	return nil
}

// Status reports every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status failed: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Run dispatches a command name ("up", "down", "status") to the matching
// method, logging status lines for "status".
func (m *Migrator) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			m.logger.Info("migration status",
				slog.Int64("version", s.Version),
				slog.String("path", s.Path),
				slog.Bool("applied", s.Applied))
		}
		return nil
	default:
		return fmt.Errorf("unknown migration command %q (want up, down or status)", command)
	}
}
