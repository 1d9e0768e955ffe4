package ledger

import (
	"context"
	"time"
)

// RetentionJobName is the scheduler name of the retention job.
const RetentionJobName = "ledger-retention"

// RetentionJob prunes the ledger on a schedule.
type RetentionJob struct {
	ledger        *Ledger
	retentionDays int
	callTimeout   time.Duration
}

// NewRetentionJob creates a job that keeps retentionDays days of history.
// The prune statement is bounded by callTimeout; zero means unbounded.
func NewRetentionJob(l *Ledger, retentionDays int, callTimeout time.Duration) *RetentionJob {
	return &RetentionJob{ledger: l, retentionDays: retentionDays, callTimeout: callTimeout}
}

// Name returns the job name.
func (j *RetentionJob) Name() string { return RetentionJobName }

// Run prunes the ledger and returns the number of deleted records.
func (j *RetentionJob) Run(ctx context.Context) (int64, error) {
	if j.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.callTimeout)
		defer cancel()
	}
	return j.ledger.PruneOlderThan(ctx, j.retentionDays)
}
