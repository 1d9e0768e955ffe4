package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/api/shared"
	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/scheduler"
	"github.com/phrazzld/duewatch/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeController struct {
	mu         sync.Mutex
	running    bool
	jobs       []scheduler.JobStatus
	triggerErr error
	triggerID  uuid.UUID
	triggered  []string
	runs       []domain.JobRun
	runsErr    error
	lastLimit  int
}

func (f *fakeController) Jobs(context.Context) []scheduler.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs
}

func (f *fakeController) TriggerNow(name string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, name)
	return f.triggerID, f.triggerErr
}

func (f *fakeController) RecentRuns(_ context.Context, limit int) ([]domain.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	return f.runs, f.runsErr
}

func (f *fakeController) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) limit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLimit
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, ctrl *fakeController) (*httptest.Server, auth.JWTService) {
	t.Helper()
	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(RouterDeps{
		Controller: ctrl,
		JWTService: jwtService,
		RunHistory: 50,
		Logger:     discard(),
	}))
	t.Cleanup(srv.Close)
	return srv, jwtService
}

func token(t *testing.T, s auth.JWTService, role string) string {
	t.Helper()
	tok, err := s.GenerateToken(context.Background(), "ops", role)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeController{running: true})

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.SchedulerRunning)
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	srv, jwtService := newTestServer(t, &fakeController{running: true})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"non-admin role", "Bearer " + token(t, jwtService, "viewer"), http.StatusForbidden},
		{"admin", "Bearer " + token(t, jwtService, auth.RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/jobs", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status != http.StatusOK {
				body := decode[shared.ErrorResponse](t, resp)
				assert.NotEmpty(t, body.Error)
				assert.NotEmpty(t, body.TraceID)
			}
		})
	}
}

func TestListJobs(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{
		running: true,
		jobs: []scheduler.JobStatus{
			{Name: "alert-dispatch", Schedule: "@every 1h", Stats: map[string]any{"alerts_sent_today": 3}},
			{Name: "session-sweep", Schedule: "@every 1h", Busy: true},
		},
	}
	srv, jwtService := newTestServer(t, ctrl)

	resp := do(t, http.MethodGet, srv.URL+"/api/jobs", token(t, jwtService, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[JobsResponse](t, resp)
	assert.True(t, body.Running)
	require.Len(t, body.Jobs, 2)
	assert.Equal(t, "alert-dispatch", body.Jobs[0].Name)
	assert.EqualValues(t, 3, body.Jobs[0].Stats["alerts_sent_today"])
	assert.True(t, body.Jobs[1].Busy)
}

func TestTriggerJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"unknown", scheduler.ErrUnknownJob, http.StatusNotFound},
		{"busy", scheduler.ErrJobBusy, http.StatusConflict},
		{"not running", scheduler.ErrNotRunning, http.StatusServiceUnavailable},
		{"other", errors.New("queue full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := &fakeController{running: true, triggerID: uuid.New(), triggerErr: tt.err}
			srv, jwtService := newTestServer(t, ctrl)

			resp := do(t, http.MethodPost, srv.URL+"/api/jobs/alert-dispatch/trigger", token(t, jwtService, auth.RoleAdmin))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, []string{"alert-dispatch"}, ctrl.triggered)

			if tt.err == nil {
				body := decode[TriggerResponse](t, resp)
				assert.Equal(t, ctrl.triggerID, body.RunID)
				assert.Equal(t, "alert-dispatch", body.Job)
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{runs: []domain.JobRun{{ID: uuid.New(), Job: "session-sweep", Status: domain.RunCompleted}}}
	srv, jwtService := newTestServer(t, ctrl)
	tok := token(t, jwtService, auth.RoleAdmin)

	resp := do(t, http.MethodGet, srv.URL+"/api/runs", tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, ctrl.limit())
	body := decode[RunsResponse](t, resp)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "session-sweep", body.Runs[0].Job)

	resp = do(t, http.MethodGet, srv.URL+"/api/runs?limit=5", tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, ctrl.limit())

	for _, bad := range []string{"abc", "0", "5000"} {
		resp = do(t, http.MethodGet, srv.URL+"/api/runs?limit="+bad, tok)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}

	ctrl.mu.Lock()
	ctrl.runsErr = errors.New("database is locked")
	ctrl.mu.Unlock()
	resp = do(t, http.MethodGet, srv.URL+"/api/runs", tok)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body2 := decode[shared.ErrorResponse](t, resp)
	assert.Equal(t, "Failed to load runs", body2.Error)
}

func TestRouterWithoutJWTSecret(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(NewRouter(RouterDeps{Controller: &fakeController{}, Logger: discard()}))
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/jobs", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
