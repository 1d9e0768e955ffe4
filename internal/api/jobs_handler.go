package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/api/shared"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/scheduler"
)

// Controller is the part of scheduler.Manager the API drives.
type Controller interface {
	Jobs(ctx context.Context) []scheduler.JobStatus
	TriggerNow(name string) (uuid.UUID, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error)
	IsRunning() bool
}

var _ Controller = (*scheduler.Manager)(nil)

// JobsResponse is the body of GET /api/jobs.
type JobsResponse struct {
	Running bool                  `json:"running"`
	Jobs    []scheduler.JobStatus `json:"jobs"`
}

// TriggerResponse is the body of a successful trigger.
type TriggerResponse struct {
	Job   string    `json:"job"`
	RunID uuid.UUID `json:"run_id"`
}

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs []domain.JobRun `json:"runs"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status           string `json:"status"`
	SchedulerRunning bool   `json:"scheduler_running"`
}

type runsQuery struct {
	Limit int `validate:"gte=1,lte=1000"`
}

// JobsHandler serves the control API.
type JobsHandler struct {
	ctrl         Controller
	defaultLimit int
}

// NewJobsHandler creates a JobsHandler. defaultLimit applies to /api/runs
// when the request has no limit parameter.
func NewJobsHandler(ctrl Controller, defaultLimit int) *JobsHandler {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &JobsHandler{ctrl: ctrl, defaultLimit: defaultLimit}
}

// Health reports liveness and whether the scheduler is running.
func (h *JobsHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:           "ok",
		SchedulerRunning: h.ctrl.IsRunning(),
	})
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, JobsResponse{
		Running: h.ctrl.IsRunning(),
		Jobs:    h.ctrl.Jobs(r.Context()),
	})
}

// TriggerJob handles POST /api/jobs/{name}/trigger.
func (h *JobsHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	id, err := h.ctrl.TriggerNow(name)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	subject, _ := shared.GetSubject(r.Context())
	logger.FromContext(r.Context()).Info("job triggered via API",
		"job", name,
		"run_id", id.String(),
		"subject", subject)

	shared.RespondWithJSON(w, r, http.StatusAccepted, TriggerResponse{Job: name, RunID: id})
}

// ListRuns handles GET /api/runs?limit=N.
func (h *JobsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := runsQuery{Limit: h.defaultLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
			return
		}
		q.Limit = n
	}
	if err := shared.ValidateRequest(q); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.ctrl.RecentRuns(r.Context(), q.Limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load runs", err)
		return
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RunsResponse{Runs: runs})
}
