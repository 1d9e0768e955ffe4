package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
	"github.com/phrazzld/duewatch/internal/task"
	"github.com/robfig/cron/v3"
)

// recordTimeout bounds run-log writes, which happen even after the run's
// own context has been cancelled.
const recordTimeout = 5 * time.Second

// Config holds the execution limits of a Manager.
type Config struct {
	// WorkerCount is the number of runs that may execute at once.
	WorkerCount int

	// QueueSize is the number of fired runs that may wait for a worker.
	QueueSize int

	// Location is the zone schedules are evaluated in. Nil means time.Local.
	Location *time.Location
}

// Manager registers jobs and drives them on their schedules.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	runs   store.RunStore
	specs  []JobSpec
	parser cron.Parser
	now    func() time.Time

	mu        sync.Mutex
	running   bool
	recovered bool
	cron      *cron.Cron
	queue     *task.TaskQueue
	pool      *task.WorkerPool
	states    map[string]*jobState
	order     []string
}

// NewManager creates a stopped Manager for the given jobs. Registration
// errors surface from Start.
func NewManager(cfg Config, logger *slog.Logger, runs store.RunStore, specs ...JobSpec) *Manager {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = len(specs)
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scheduler")),
		runs:   runs,
		specs:  specs,
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
		now: time.Now,
	}
}

// prepareLocked validates and indexes the job specs once. Callers hold mu.
func (m *Manager) prepareLocked() error {
	if m.states != nil {
		return nil
	}

	states := make(map[string]*jobState, len(m.specs))
	order := make([]string, 0, len(m.specs))
	for _, spec := range m.specs {
		if spec.Job == nil || spec.Job.Name() == "" {
			return &InitError{Err: fmt.Errorf("%w: job must have a name", ErrInvalidJob)}
		}
		name := spec.Job.Name()
		if _, dup := states[name]; dup {
			return &InitError{Job: name, Err: ErrDuplicateJob}
		}

		st := &jobState{spec: spec, name: name}
		if spec.Schedule != "" {
			sched, err := m.parser.Parse(spec.Schedule)
			if err != nil {
				return &InitError{Job: name, Err: fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec.Schedule, err)}
			}
			st.schedule = sched
		}
		states[name] = st
		order = append(order, name)
	}

	m.states = states
	m.order = order
	return nil
}

// Start registers every job and starts the runtime. Start after Stop is
// allowed; Start while running fails with ErrAlreadyStarted.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return &InitError{Err: ErrAlreadyStarted}
	}
	if err := m.prepareLocked(); err != nil {
		return err
	}

	if !m.recovered {
		m.markAbandoned()
		m.recovered = true
	}

	queue := task.NewTaskQueue(m.cfg.QueueSize, m.logger)
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: m.cfg.WorkerCount}, m.logger)
	pool.SetErrorHandler(func(t task.Task, err error) {
		m.logger.Error("job task failed",
			slog.String("job", t.Type()),
			slog.String("run_id", t.ID().String()),
			slog.String("error", err.Error()))
	})

	c := cron.New(
		cron.WithParser(m.parser),
		cron.WithLocation(m.cfg.Location),
		cron.WithLogger(cronLogger{logger: m.logger}),
	)
	for _, name := range m.order {
		st := m.states[name]
		if st.schedule == nil {
			continue
		}
		st.entryID = c.Schedule(st.schedule, cron.FuncJob(func() {
			if _, err := m.enqueue(queue, st, domain.TriggerSchedule); err != nil {
				m.logger.Warn("skipping scheduled run",
					slog.String("job", st.name),
					slog.String("reason", err.Error()))
			}
		}))
	}

	pool.Start()
	c.Start()
	m.cron, m.queue, m.pool = c, queue, pool
	m.running = true

	m.logger.Info("scheduler started",
		slog.Int("jobs", len(m.order)),
		slog.Int("workers", m.cfg.WorkerCount),
		slog.String("location", m.cfg.Location.String()))

	for _, name := range m.order {
		st := m.states[name]
		if !st.spec.RunOnStart {
			continue
		}
		if _, err := m.enqueue(queue, st, domain.TriggerStartup); err != nil {
			m.logger.Warn("skipping startup run",
				slog.String("job", name),
				slog.String("reason", err.Error()))
		}
	}
	return nil
}

// markAbandoned fails runs a previous process left in the running state.
func (m *Manager) markAbandoned() {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	n, err := m.runs.MarkAbandoned(ctx, m.now())
	if err != nil {
		m.logger.Warn("failed to mark abandoned runs", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		m.logger.Warn("marked abandoned runs as failed", slog.Int64("count", n))
	}
}

// enqueue claims st and queues a run. The claim is released when the run
// finishes or if it cannot be queued.
func (m *Manager) enqueue(q *task.TaskQueue, st *jobState, trigger domain.RunTrigger) (uuid.UUID, error) {
	if !st.busy.CompareAndSwap(false, true) {
		return uuid.Nil, ErrJobBusy
	}

	t := &jobTask{id: uuid.New(), manager: m, state: st, trigger: trigger}
	if err := q.Enqueue(t); err != nil {
		st.busy.Store(false)
		return uuid.Nil, fmt.Errorf("failed to queue %s: %w", st.name, err)
	}
	return t.id, nil
}

// TriggerNow queues an immediate run of the named job without changing
// its schedule, returning the run ID.
func (m *Manager) TriggerNow(name string) (uuid.UUID, error) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return uuid.Nil, ErrNotRunning
	}
	st, ok := m.states[name]
	queue := m.queue
	m.mu.Unlock()

	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	id, err := m.enqueue(queue, st, domain.TriggerManual)
	if err != nil {
		return uuid.Nil, err
	}
	m.logger.Info("job triggered manually", slog.String("job", name), slog.String("run_id", id.String()))
	return id, nil
}

// RunNow runs the named job synchronously on the caller's goroutine. It
// does not require the Manager to be started.
func (m *Manager) RunNow(ctx context.Context, name string) (domain.JobRun, error) {
	m.mu.Lock()
	if err := m.prepareLocked(); err != nil {
		m.mu.Unlock()
		return domain.JobRun{}, err
	}
	st, ok := m.states[name]
	m.mu.Unlock()

	if !ok {
		return domain.JobRun{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !st.busy.CompareAndSwap(false, true) {
		return domain.JobRun{}, ErrJobBusy
	}
	defer st.busy.Store(false)

	run := m.execute(ctx, st, domain.TriggerManual, uuid.New())
	if run.Status != domain.RunCompleted {
		return run, fmt.Errorf("job %s %s: %s", name, run.Status, run.Error)
	}
	return run, nil
}

// Stop halts the schedules. With graceful set it waits for queued and
// in-flight runs to finish; otherwise it cancels them and returns at once.
// Stop is idempotent.
func (m *Manager) Stop(graceful bool) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	c, queue, pool := m.cron, m.queue, m.pool
	m.mu.Unlock()

	// Wait for cron callbacks so nothing enqueues after Close.
	<-c.Stop().Done()
	queue.Close()

	if graceful {
		pool.Stop(true)
		m.logger.Info("scheduler stopped")
		return
	}

	pool.Stop(false)
	for t := range queue.GetChannel() {
		if jt, ok := t.(*jobTask); ok {
			jt.discard()
		}
	}
	m.logger.Info("scheduler stopped without draining")
}

// IsRunning reports whether the Manager has been started and not stopped.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Jobs returns the state of every registered job, in registration order.
func (m *Manager) Jobs(ctx context.Context) []JobStatus {
	m.mu.Lock()
	if err := m.prepareLocked(); err != nil {
		m.mu.Unlock()
		return nil
	}
	states := make([]*jobState, 0, len(m.order))
	for _, name := range m.order {
		states = append(states, m.states[name])
	}
	running, c := m.running, m.cron
	m.mu.Unlock()

	out := make([]JobStatus, 0, len(states))
	for _, st := range states {
		status := JobStatus{
			Name:     st.name,
			Schedule: st.spec.Schedule,
			Busy:     st.busy.Load(),
			LastRun:  st.lastRun(),
		}
		if running && st.schedule != nil {
			if next := c.Entry(st.entryID).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}
		if status.LastRun == nil {
			if run, err := m.runs.LastFor(ctx, st.name); err == nil {
				status.LastRun = &run
			} else if !errors.Is(err, store.ErrRunNotFound) {
				m.logger.Warn("failed to load last run",
					slog.String("job", st.name),
					slog.String("error", err.Error()))
			}
		}
		if reporter, ok := st.spec.Job.(StatsReporter); ok {
			status.Stats = reporter.Stats(ctx)
		}
		out = append(out, status)
	}
	return out
}

// RecentRuns returns up to limit entries of the run log, newest first.
func (m *Manager) RecentRuns(ctx context.Context, limit int) ([]domain.JobRun, error) {
	return m.runs.Recent(ctx, limit)
}
