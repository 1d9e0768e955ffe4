package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/robfig/cron/v3"
)

// Job is a unit of recurring work.
type Job interface {
	// Name identifies the job; it must be unique within a Manager.
	Name() string

	// Run performs one pass and returns the number of items processed.
	// It should return promptly once ctx is cancelled.
	Run(ctx context.Context) (int64, error)
}

// StatsReporter is implemented by jobs that expose extra state in Jobs().
type StatsReporter interface {
	Stats(ctx context.Context) map[string]any
}

// JobSpec binds a job to its schedule. Schedule accepts 5-field cron
// expressions and descriptors ("@every 1h", "@daily"); an empty schedule
// registers a job that only runs when triggered.
type JobSpec struct {
	Job        Job
	Schedule   string
	RunOnStart bool
}

// JobStatus is a snapshot of one registered job.
type JobStatus struct {
	Name     string         `json:"name"`
	Schedule string         `json:"schedule"`
	Busy     bool           `json:"busy"`
	NextRun  *time.Time     `json:"next_run,omitempty"`
	LastRun  *domain.JobRun `json:"last_run,omitempty"`
	Stats    map[string]any `json:"stats,omitempty"`
}

type jobState struct {
	spec     JobSpec
	name     string
	schedule cron.Schedule
	entryID  cron.EntryID

	// busy is held from enqueue until the run has been recorded.
	busy atomic.Bool

	mu   sync.Mutex
	last *domain.JobRun
}

func (s *jobState) setLast(run domain.JobRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &run
}

func (s *jobState) lastRun() *domain.JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	run := *s.last
	return &run
}
