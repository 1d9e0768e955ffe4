package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/store"
)

// SessionStore implements store.SessionStore over the host application's
// sessions table.
type SessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore.
func NewSessionStore(db store.DBTX, logger *slog.Logger) *SessionStore {
	return &SessionStore{db: db, logger: logger.With(slog.String("component", "session_store"))}
}

// basisColumn returns the SQL expression a sweep measures staleness from.
func basisColumn(basis domain.SweepBasis) (string, error) {
	switch basis {
	case domain.SweepByLogin, "":
		return "login_time", nil
	case domain.SweepByActivity:
		return "COALESCE(last_activity_time, login_time)", nil
	default:
		return "", fmt.Errorf("%w: unknown sweep basis %q", store.ErrInvalidEntity, basis)
	}
}

// BulkExpire implements store.SessionStore.
func (s *SessionStore) BulkExpire(
	ctx context.Context,
	basis domain.SweepBasis,
	cutoff, now time.Time,
) (int64, error) {
	column, err := basisColumn(basis)
	if err != nil {
		return 0, err
	}

	query := s.db.Rebind(fmt.Sprintf(`
		UPDATE sessions
		SET status = ?, logout_time = ?
		WHERE status = ? AND %s < ?`, column))

	result, err := s.db.ExecContext(ctx, query,
		string(domain.SessionExpired), now.UTC(), string(domain.SessionActive), cutoff.UTC())
	if err != nil {
		return 0, store.NewStoreError("session", "expire", "bulk update failed", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("expired sessions",
		slog.String("basis", string(basis)),
		slog.Time("cutoff", cutoff),
		slog.Int64("expired", n))
	return n, nil
}

// CountActive implements store.SessionStore.
func (s *SessionStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	query := s.db.Rebind(`SELECT COUNT(*) FROM sessions WHERE status = ?`)
	if err := s.db.GetContext(ctx, &n, query, string(domain.SessionActive)); err != nil {
		return 0, store.NewStoreError("session", "count", "count active failed", MapError(err))
	}
	return n, nil
}
