package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/mocks"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name  string
	runFn func(ctx context.Context) (int64, error)
	calls atomic.Int32
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(ctx context.Context) (int64, error) {
	j.calls.Add(1)
	if j.runFn != nil {
		return j.runFn(ctx)
	}
	return 1, nil
}

type statsJob struct {
	testJob
}

func (j *statsJob) Stats(context.Context) map[string]any {
	return map[string]any{"alerts_sent_today": int64(4)}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(runs *mocks.MockRunStore, specs ...JobSpec) *Manager {
	return NewManager(Config{WorkerCount: 2, QueueSize: 4, Location: time.UTC}, discard(), runs, specs...)
}

func waitForRun(t *testing.T, runs *mocks.MockRunStore, id uuid.UUID, status domain.RunStatus) domain.JobRun {
	t.Helper()
	var found domain.JobRun
	require.Eventually(t, func() bool {
		for _, r := range runs.Runs() {
			if r.ID == id && r.Status == status {
				found = r
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
	return found
}

func TestStart_RegistrationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		specs   []JobSpec
		wantErr error
		wantJob string
	}{
		{
			name: "duplicate name",
			specs: []JobSpec{
				{Job: &testJob{name: "a"}, Schedule: "@every 1h"},
				{Job: &testJob{name: "a"}, Schedule: "@daily"},
			},
			wantErr: ErrDuplicateJob,
			wantJob: "a",
		},
		{
			name:    "invalid schedule",
			specs:   []JobSpec{{Job: &testJob{name: "b"}, Schedule: "every so often"}},
			wantErr: ErrInvalidSchedule,
			wantJob: "b",
		},
		{
			name:    "unnamed job",
			specs:   []JobSpec{{Job: &testJob{}, Schedule: "@daily"}},
			wantErr: ErrInvalidJob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newManager(mocks.NewMockRunStore(), tt.specs...)

			err := m.Start()
			var initErr *InitError
			require.ErrorAs(t, err, &initErr)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantJob, initErr.Job)
			assert.False(t, m.IsRunning())
		})
	}
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()
	m := newManager(mocks.NewMockRunStore(), JobSpec{Job: &testJob{name: "a"}, Schedule: "0 3 * * *"})

	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())

	err := m.Start()
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	m.Stop(true)
	assert.False(t, m.IsRunning())
	m.Stop(true)
	m.Stop(false)

	require.NoError(t, m.Start(), "start after stop is allowed")
	assert.True(t, m.IsRunning())
	m.Stop(true)
}

func TestTriggerNow(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	job := &testJob{name: "slow", runFn: func(ctx context.Context) (int64, error) {
		started <- struct{}{}
		<-release
		return 7, nil
	}}
	m := newManager(runs, JobSpec{Job: job, Schedule: "0 3 * * *"})

	_, err := m.TriggerNow("slow")
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, m.Start())
	defer m.Stop(false)

	_, err = m.TriggerNow("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)

	id, err := m.TriggerNow("slow")
	require.NoError(t, err)
	<-started

	_, err = m.TriggerNow("slow")
	assert.ErrorIs(t, err, ErrJobBusy, "a job never overlaps itself")

	close(release)
	run := waitForRun(t, runs, id, domain.RunCompleted)
	assert.Equal(t, domain.TriggerManual, run.Trigger)
	assert.Equal(t, int64(7), run.Processed)
	assert.Equal(t, int32(1), job.calls.Load())

	require.Eventually(t, func() bool {
		_, err := m.TriggerNow("slow")
		return err == nil
	}, time.Second, 10*time.Millisecond, "busy flag is released after the run")
}

func TestTriggerNow_KeepsSchedule(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	m := newManager(runs, JobSpec{Job: &testJob{name: "nightly"}, Schedule: "0 3 * * *"})
	require.NoError(t, m.Start())
	defer m.Stop(true)

	before := m.Jobs(context.Background())
	require.Len(t, before, 1)
	require.NotNil(t, before[0].NextRun)

	id, err := m.TriggerNow("nightly")
	require.NoError(t, err)
	waitForRun(t, runs, id, domain.RunCompleted)

	after := m.Jobs(context.Background())
	require.NotNil(t, after[0].NextRun)
	assert.True(t, before[0].NextRun.Equal(*after[0].NextRun), "manual run does not move the next fire")
	require.NotNil(t, after[0].LastRun)
	assert.Equal(t, domain.TriggerManual, after[0].LastRun.Trigger)
}

func TestScheduledFireWhileBusyIsSkipped(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	buf, log := logger.NewCapture()

	release := make(chan struct{})
	job := &testJob{name: "blocking", runFn: func(ctx context.Context) (int64, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return 0, nil
	}}
	m := NewManager(Config{WorkerCount: 2, QueueSize: 4, Location: time.UTC}, log, runs,
		JobSpec{Job: job, Schedule: "@every 1s"})
	require.NoError(t, m.Start())
	defer m.Stop(false)

	require.Eventually(t, func() bool {
		for _, msg := range buf.Messages(slog.LevelWarn) {
			if msg == "skipping scheduled run" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), job.calls.Load(), "a busy job is not started again")
	close(release)

	entries, err := buf.Entries()
	require.NoError(t, err)
	for _, e := range entries {
		if e["msg"] == "skipping scheduled run" {
			assert.Equal(t, "blocking", e["job"])
			assert.Equal(t, ErrJobBusy.Error(), e["reason"])
		}
	}
}

func TestOverrunningRunIsLogged(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	buf, log := logger.NewCapture()

	job := &testJob{name: "slow", runFn: func(ctx context.Context) (int64, error) {
		select {
		case <-time.After(1500 * time.Millisecond):
		case <-ctx.Done():
		}
		return 0, nil
	}}
	m := NewManager(Config{WorkerCount: 1, QueueSize: 4, Location: time.UTC}, log, runs,
		JobSpec{Job: job, Schedule: "@every 1s"})
	require.NoError(t, m.Start())
	defer m.Stop(false)

	id, err := m.TriggerNow("slow")
	require.NoError(t, err)
	waitForRun(t, runs, id, domain.RunCompleted)

	assert.Contains(t, buf.Messages(slog.LevelWarn), "job run overran its next scheduled start")
}

func TestScheduledAndStartupRuns(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	ticking := &testJob{name: "ticking"}
	startup := &testJob{name: "startup"}

	m := newManager(runs,
		JobSpec{Job: ticking, Schedule: "@every 1s"},
		JobSpec{Job: startup, Schedule: "0 3 * * *", RunOnStart: true},
	)
	require.NoError(t, m.Start())
	defer m.Stop(true)

	require.Eventually(t, func() bool { return ticking.calls.Load() >= 1 }, 4*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return startup.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	var triggers []domain.RunTrigger
	for _, r := range runs.Runs() {
		if r.Job == "startup" {
			triggers = append(triggers, r.Trigger)
		}
	}
	assert.Equal(t, []domain.RunTrigger{domain.TriggerStartup}, triggers)
}

func TestFailedAndPanickingRunsAreRecorded(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	failing := &testJob{name: "failing", runFn: func(context.Context) (int64, error) {
		return 2, errors.New("list users: connection refused")
	}}
	panicking := &testJob{name: "panicking", runFn: func(context.Context) (int64, error) {
		panic("boom")
	}}

	m := newManager(runs, JobSpec{Job: failing}, JobSpec{Job: panicking})
	require.NoError(t, m.Start())
	defer m.Stop(true)

	id, err := m.TriggerNow("failing")
	require.NoError(t, err)
	run := waitForRun(t, runs, id, domain.RunFailed)
	assert.Equal(t, int64(2), run.Processed)
	assert.Contains(t, run.Error, "connection refused")

	id, err = m.TriggerNow("panicking")
	require.NoError(t, err)
	run = waitForRun(t, runs, id, domain.RunFailed)
	assert.Contains(t, run.Error, "panicked")

	// jobs stay registered after failures
	require.Eventually(t, func() bool {
		_, err := m.TriggerNow("failing")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestStop_NonGracefulCancelsRuns(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	started := make(chan struct{})
	job := &testJob{name: "blocking", runFn: func(ctx context.Context) (int64, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}}

	m := newManager(runs, JobSpec{Job: job})
	require.NoError(t, m.Start())

	id, err := m.TriggerNow("blocking")
	require.NoError(t, err)
	<-started

	stopped := make(chan struct{})
	go func() {
		m.Stop(false)
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("non-graceful stop blocked")
	}

	waitForRun(t, runs, id, domain.RunCancelled)
}

func TestStop_GracefulWaitsForRuns(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	started := make(chan struct{})
	job := &testJob{name: "short", runFn: func(ctx context.Context) (int64, error) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		return 3, nil
	}}

	m := newManager(runs, JobSpec{Job: job})
	require.NoError(t, m.Start())
	id, err := m.TriggerNow("short")
	require.NoError(t, err)
	<-started

	m.Stop(true)

	all := runs.Runs()
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].ID)
	assert.Equal(t, domain.RunCompleted, all[0].Status)
}

func TestRunNow(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", runFn: func(context.Context) (int64, error) {
		return 0, errors.New("nope")
	}}
	m := newManager(runs, JobSpec{Job: ok, Schedule: "@daily"}, JobSpec{Job: bad})

	run, err := m.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, int64(1), run.Processed)
	assert.False(t, m.IsRunning())

	run, err = m.RunNow(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)

	_, err = m.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownJob)

	assert.Len(t, runs.Runs(), 2)
}

func TestJobs(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	dispatch := &statsJob{testJob{name: "alert-dispatch"}}
	sweep := &testJob{name: "session-sweep"}

	m := newManager(runs,
		JobSpec{Job: dispatch, Schedule: "@every 1h"},
		JobSpec{Job: sweep, Schedule: "@every 1h"},
	)
	_, err := m.RunNow(context.Background(), "session-sweep")
	require.NoError(t, err)

	require.NoError(t, m.Start())
	defer m.Stop(true)

	jobs := m.Jobs(context.Background())
	require.Len(t, jobs, 2)

	assert.Equal(t, "alert-dispatch", jobs[0].Name)
	assert.Equal(t, "@every 1h", jobs[0].Schedule)
	assert.False(t, jobs[0].Busy)
	require.NotNil(t, jobs[0].NextRun)
	assert.Nil(t, jobs[0].LastRun)
	assert.Equal(t, int64(4), jobs[0].Stats["alerts_sent_today"])

	require.NotNil(t, jobs[1].LastRun)
	assert.Equal(t, domain.RunCompleted, jobs[1].LastRun.Status)
	assert.Nil(t, jobs[1].Stats)
}

func TestStart_MarksAbandonedRuns(t *testing.T) {
	t.Parallel()
	runs := mocks.NewMockRunStore()
	stale := domain.JobRun{
		ID:        uuid.New(),
		Job:       "alert-dispatch",
		Trigger:   domain.TriggerSchedule,
		Status:    domain.RunRunning,
		StartedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, runs.Create(context.Background(), stale))

	m := newManager(runs, JobSpec{Job: &testJob{name: "alert-dispatch"}, Schedule: "@every 1h"})
	require.NoError(t, m.Start())
	defer m.Stop(true)

	all := runs.Runs()
	require.Len(t, all, 1)
	assert.Equal(t, domain.RunFailed, all[0].Status)
}

func TestInitErrorMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "scheduler init failed: scheduler already started",
		(&InitError{Err: ErrAlreadyStarted}).Error())
	assert.Equal(t, `scheduler init failed for job "x": duplicate job name`,
		(&InitError{Job: "x", Err: ErrDuplicateJob}).Error())
}
