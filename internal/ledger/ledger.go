// Package ledger records which alerts have been sent so that each
// (user, task, level) pair is emailed at most once per calendar day, and
// prunes records once they are past the retention window.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/store"
)

// ErrInvalidRetention is returned by PruneOlderThan for a negative window.
var ErrInvalidRetention = errors.New("retention days must not be negative")

// Ledger is the dedup ledger service. "Today" is always the civil date in
// the configured location.
type Ledger struct {
	store  store.LedgerStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger over s. A nil loc means time.Local.
func New(s store.LedgerStore, loc *time.Location, logger *slog.Logger, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	l := &Ledger{
		store:  s,
		loc:    loc,
		now:    time.Now,
		logger: logger.With(slog.String("component", "ledger")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current calendar day in the ledger's location.
func (l *Ledger) Today() domain.Day {
	return domain.DayOf(l.now(), l.loc)
}

// AlreadySent reports whether an alert with exactly this key was recorded.
func (l *Ledger) AlreadySent(
	ctx context.Context,
	userID, taskID int64,
	level domain.Level,
	day domain.Day,
) (bool, error) {
	sent, err := l.store.Exists(ctx, userID, taskID, level, day)
	if err != nil {
		return false, fmt.Errorf("ledger lookup failed: %w", err)
	}
	return sent, nil
}

// RecordSent stores rec. It returns an error wrapping
// store.ErrDuplicateAlert when the key already exists.
func (l *Ledger) RecordSent(ctx context.Context, rec domain.SentAlert) error {
	if rec.SentAt.IsZero() {
		rec.SentAt = l.now()
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("ledger record failed: %w", err)
	}
	return nil
}

// PruneOlderThan deletes records whose day is earlier than today minus
// retentionDays and returns the number removed. Today's records are never
// touched.
func (l *Ledger) PruneOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRetention, retentionDays)
	}
	cutoff := l.Today().AddDays(-retentionDays)

	n, err := l.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger prune failed: %w", err)
	}
	logger.FromContextOrDefault(ctx, l.logger).Info("pruned sent-alert ledger",
		slog.String("cutoff", cutoff.String()),
		slog.Int64("deleted", n))
	return n, nil
}

// CountSentOn returns how many alerts were recorded for day.
func (l *Ledger) CountSentOn(ctx context.Context, day domain.Day) (int64, error) {
	n, err := l.store.CountOn(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("ledger count failed: %w", err)
	}
	return n, nil
}
