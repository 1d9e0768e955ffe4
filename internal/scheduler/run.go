package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/redact"
	"github.com/phrazzld/duewatch/internal/task"
)

// jobTask adapts one fired run to the worker pool.
type jobTask struct {
	id      uuid.UUID
	manager *Manager
	state   *jobState
	trigger domain.RunTrigger
}

var _ task.Task = (*jobTask)(nil)

func (t *jobTask) ID() uuid.UUID { return t.id }

func (t *jobTask) Type() string { return t.state.name }

// Execute runs the job unless the pool was cancelled before it started.
// Job failures are recorded in the run log, not returned.
func (t *jobTask) Execute(ctx context.Context) error {
	defer t.state.busy.Store(false)

	if err := ctx.Err(); err != nil {
		t.manager.logger.Info("run cancelled before start",
			slog.String("job", t.state.name),
			slog.String("run_id", t.id.String()))
		return nil
	}
	t.manager.execute(ctx, t.state, t.trigger, t.id)
	return nil
}

// discard releases a run that will never execute.
func (t *jobTask) discard() {
	t.state.busy.Store(false)
}

// execute runs st's job once and records the outcome. The caller holds the
// job's busy claim.
func (m *Manager) execute(
	ctx context.Context,
	st *jobState,
	trigger domain.RunTrigger,
	id uuid.UUID,
) domain.JobRun {
	log := m.logger.With(
		slog.String("job", st.name),
		slog.String("run_id", id.String()),
		slog.String("trigger", string(trigger)),
	)
	ctx = logger.WithLogger(ctx, log)

	run := domain.JobRun{
		ID:        id,
		Job:       st.name,
		Trigger:   trigger,
		Status:    domain.RunRunning,
		StartedAt: m.now().UTC(),
	}
	m.record(ctx, log, run, m.runs.Create)
	log.Info("job started")

	processed, err := runSafely(ctx, st.spec.Job)

	finished := m.now().UTC()
	run.FinishedAt = &finished
	run.Processed = processed
	switch {
	case err == nil:
		run.Status = domain.RunCompleted
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		run.Status = domain.RunCancelled
		run.Error = err.Error()
	default:
		run.Status = domain.RunFailed
		run.Error = redact.Error(err)
	}

	if st.schedule != nil {
		next := st.schedule.Next(run.StartedAt.In(m.cfg.Location))
		if !next.IsZero() && finished.After(next) {
			log.Warn("job run overran its next scheduled start",
				slog.Time("scheduled_next", next),
				slog.Duration("duration", run.Duration()))
		}
	}

	m.record(ctx, log, run, m.runs.Finish)
	st.setLast(run)

	attrs := []any{
		slog.String("status", string(run.Status)),
		slog.Int64("processed", run.Processed),
		slog.Duration("duration", run.Duration()),
	}
	switch run.Status {
	case domain.RunCompleted:
		log.Info("job finished", attrs...)
	case domain.RunCancelled:
		log.Warn("job cancelled", attrs...)
	default:
		log.Error("job failed", append(attrs, slog.String("error", run.Error))...)
	}
	return run
}

// record writes to the run log with a context that outlives cancellation
// of the run itself.
func (m *Manager) record(
	ctx context.Context,
	log *slog.Logger,
	run domain.JobRun,
	write func(context.Context, domain.JobRun) error,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := write(ctx, run); err != nil {
		log.Warn("failed to write run log", slog.String("error", err.Error()))
	}
}

func runSafely(ctx context.Context, job Job) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("job panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
