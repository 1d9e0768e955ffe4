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

// LedgerStore implements store.LedgerStore over the sent_alerts table.
type LedgerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a LedgerStore using db, which may be a pool or a
// transaction.
func NewLedgerStore(db store.DBTX, logger *slog.Logger) *LedgerStore {
	return &LedgerStore{db: db, logger: logger.With(slog.String("component", "ledger_store"))}
}

// Exists implements store.LedgerStore.
func (s *LedgerStore) Exists(
	ctx context.Context,
	userID, taskID int64,
	level domain.Level,
	day domain.Day,
) (bool, error) {
	query := s.db.Rebind(`
		SELECT COUNT(*) FROM sent_alerts
		WHERE user_id = ? AND task_id = ? AND level = ? AND day = ?`)

	var n int64
	if err := s.db.GetContext(ctx, &n, query, userID, taskID, string(level), day.String()); err != nil {
		return false, fmt.Errorf("failed to check sent alert: %w", MapError(err))
	}
	return n > 0, nil
}

// Insert implements store.LedgerStore.
func (s *LedgerStore) Insert(ctx context.Context, rec domain.SentAlert) error {
	if rec.Level == domain.LevelNone || rec.Level.Rank() == 0 {
		return fmt.Errorf("%w: level %q is not recordable", store.ErrInvalidEntity, rec.Level)
	}
	if rec.Day.IsZero() {
		return fmt.Errorf("%w: missing day", store.ErrInvalidEntity)
	}
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	query := s.db.Rebind(`
		INSERT INTO sent_alerts (user_id, task_id, level, day, days_remaining, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.TaskID, string(rec.Level), rec.Day.String(), rec.DaysRemaining, sentAt.UTC())
	if err != nil {
		mapped := MapError(err)
		if store.IsDuplicateError(mapped) {
			return fmt.Errorf("%w: user=%d task=%d level=%s day=%s",
				store.ErrDuplicateAlert, rec.UserID, rec.TaskID, rec.Level, rec.Day)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert sent alert",
			slog.Int64("user_id", rec.UserID),
			slog.Int64("task_id", rec.TaskID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert sent alert: %w", mapped)
	}
	return nil
}

// DeleteBefore implements store.LedgerStore.
func (s *LedgerStore) DeleteBefore(ctx context.Context, day domain.Day) (int64, error) {
	query := s.db.Rebind(`DELETE FROM sent_alerts WHERE day < ?`)

	result, err := s.db.ExecContext(ctx, query, day.String())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sent alerts: %w", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// CountOn implements store.LedgerStore.
func (s *LedgerStore) CountOn(ctx context.Context, day domain.Day) (int64, error) {
	var n int64
	query := s.db.Rebind(`SELECT COUNT(*) FROM sent_alerts WHERE day = ?`)
	if err := s.db.GetContext(ctx, &n, query, day.String()); err != nil {
		return 0, fmt.Errorf("failed to count sent alerts: %w", MapError(err))
	}
	return n, nil
}
