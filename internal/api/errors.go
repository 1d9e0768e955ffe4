package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/duewatch/internal/scheduler"
)

// MapErrorToStatusCode maps scheduler errors to HTTP status codes without
// leaking their messages.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrJobBusy):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, scheduler.ErrUnknownJob):
		return "Job not found"
	case errors.Is(err, scheduler.ErrJobBusy):
		return "Job is already running"
	case errors.Is(err, scheduler.ErrNotRunning):
		return "Scheduler is not running"
	default:
		return "An unexpected error occurred"
	}
}
