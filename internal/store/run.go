package store

import (
	"context"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
)

// RunStore persists the job run log.
type RunStore interface {
	// Create inserts a run, normally in the running state.
	Create(ctx context.Context, run domain.JobRun) error

	// Finish records the final status, finish time, count and error of a run.
	// Returns ErrRunNotFound if no run has that ID.
	Finish(ctx context.Context, run domain.JobRun) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.JobRun, error)

	// LastFor returns the newest run of the named job.
	// Returns ErrRunNotFound if the job has never run.
	LastFor(ctx context.Context, job string) (domain.JobRun, error)

	// MarkAbandoned fails every run still in the running state that started
	// before the given time, returning how many were changed. It is used at
	// startup for runs a previous process never finished.
	MarkAbandoned(ctx context.Context, before time.Time) (int64, error)
}
