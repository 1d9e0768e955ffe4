package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome state of a job run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerSchedule RunTrigger = "schedule"
	TriggerStartup  RunTrigger = "startup"
	TriggerManual   RunTrigger = "manual"
)

// JobRun is one execution of a scheduled job. Processed is the job's own
// count: alerts sent, sessions expired or ledger rows pruned.
type JobRun struct {
	ID         uuid.UUID  `json:"id"`
	Job        string     `json:"job"`
	Trigger    RunTrigger `json:"trigger"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int64      `json:"processed"`
	Error      string     `json:"error,omitempty"`
}

// Duration is the elapsed run time, or zero while the run is in flight.
func (r JobRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
