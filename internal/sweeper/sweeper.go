// Package sweeper expires host-application sessions that have been idle
// longer than the configured timeout.
package sweeper

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

// JobName is the scheduler name of the sweep job.
const JobName = "session-sweep"

// ErrInvalidTimeout is returned for a non-positive session timeout.
var ErrInvalidTimeout = errors.New("session timeout must be positive")

// Sweeper bulk-expires stale sessions.
type Sweeper struct {
	sessions    store.SessionStore
	basis       domain.SweepBasis
	callTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a Sweeper. An empty basis means domain.SweepByLogin. Each
// store call is bounded by callTimeout; zero means unbounded.
func New(
	sessions store.SessionStore,
	basis domain.SweepBasis,
	callTimeout time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if basis == "" {
		basis = domain.SweepByLogin
	}
	return &Sweeper{
		sessions:    sessions,
		basis:       basis,
		callTimeout: callTimeout,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "sweeper")),
	}
}

// SetClock overrides the time source.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep expires every ACTIVE session whose basis time is more than
// timeoutMinutes in the past and returns how many were expired. A second
// sweep right after the first expires nothing.
func (s *Sweeper) Sweep(ctx context.Context, timeoutMinutes int) (int64, error) {
	if timeoutMinutes <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTimeout, timeoutMinutes)
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := s.now().UTC()
	cutoff := now.Add(-time.Duration(timeoutMinutes) * time.Minute)

	before := s.countActive(ctx, log)

	expireCtx, cancel := s.bounded(ctx)
	n, err := s.sessions.BulkExpire(expireCtx, s.basis, cutoff, now)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("session sweep failed: %w", err)
	}

	after := s.countActive(ctx, log)

	log.Info("session sweep finished",
		slog.String("basis", string(s.basis)),
		slog.Time("cutoff", cutoff),
		slog.Int64("expired", n),
		slog.Int64("active_before", before),
		slog.Int64("active_after", after))
	return n, nil
}

func (s *Sweeper) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// countActive is informational only; a failure is logged and reads as zero.
func (s *Sweeper) countActive(ctx context.Context, log *slog.Logger) int64 {
	callCtx, cancel := s.bounded(ctx)
	defer cancel()

	n, err := s.sessions.CountActive(callCtx)
	if err != nil {
		log.Warn("failed to count active sessions", slog.String("error", err.Error()))
		return 0
	}
	return n
}

// Job adapts a Sweeper to the scheduler with a fixed timeout.
type Job struct {
	sweeper        *Sweeper
	timeoutMinutes int
}

// NewJob creates the session-sweep job.
func NewJob(s *Sweeper, timeoutMinutes int) *Job {
	return &Job{sweeper: s, timeoutMinutes: timeoutMinutes}
}

// Name returns the job name.
func (j *Job) Name() string { return JobName }

// Run performs one sweep.
func (j *Job) Run(ctx context.Context) (int64, error) {
	return j.sweeper.Sweep(ctx, j.timeoutMinutes)
}
