package scheduler

import (
	"errors"
	"fmt"
)

// Errors returned by the Manager.
var (
	ErrDuplicateJob    = errors.New("duplicate job name")
	ErrInvalidSchedule = errors.New("invalid job schedule")
	ErrAlreadyStarted  = errors.New("scheduler already started")
	ErrInvalidJob      = errors.New("invalid job")
	ErrUnknownJob      = errors.New("unknown job")
	ErrNotRunning      = errors.New("scheduler is not running")
	ErrJobBusy         = errors.New("job is already running")
)

// InitError reports a failure to register a job or start the runtime.
type InitError struct {
	// Job is the offending job name, empty for runtime-level failures.
	Job string
	Err error
}

func (e *InitError) Error() string {
	if e.Job == "" {
		return fmt.Sprintf("scheduler init failed: %v", e.Err)
	}
	return fmt.Sprintf("scheduler init failed for job %q: %v", e.Job, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
