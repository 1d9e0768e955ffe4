package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
)

// MockRunStore is an in-memory store.RunStore.
type MockRunStore struct {
	CreateFn func(ctx context.Context, run domain.JobRun) error
	FinishFn func(ctx context.Context, run domain.JobRun) error

	mu   sync.Mutex
	runs map[uuid.UUID]domain.JobRun
}

var _ store.RunStore = (*MockRunStore)(nil)

// NewMockRunStore creates an empty MockRunStore.
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{runs: make(map[uuid.UUID]domain.JobRun)}
}

// Create implements store.RunStore
func (m *MockRunStore) Create(ctx context.Context, run domain.JobRun) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("%w: run %s", store.ErrDuplicate, run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

// Finish implements store.RunStore
func (m *MockRunStore) Finish(ctx context.Context, run domain.JobRun) error {
	if m.FinishFn != nil {
		return m.FinishFn(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.runs[run.ID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrRunNotFound, run.ID)
	}
	stored.Status = run.Status
	stored.FinishedAt = run.FinishedAt
	stored.Processed = run.Processed
	stored.Error = run.Error
	m.runs[run.ID] = stored
	return nil
}

func (m *MockRunStore) sorted() []domain.JobRun {
	out := make([]domain.JobRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Recent implements store.RunStore
func (m *MockRunStore) Recent(ctx context.Context, limit int) ([]domain.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LastFor implements store.RunStore
func (m *MockRunStore) LastFor(ctx context.Context, job string) (domain.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.sorted() {
		if r.Job == job {
			return r, nil
		}
	}
	return domain.JobRun{}, fmt.Errorf("%w: job %s", store.ErrRunNotFound, job)
}

// MarkAbandoned implements store.RunStore
func (m *MockRunStore) MarkAbandoned(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for id, r := range m.runs {
		if r.Status == domain.RunRunning && r.StartedAt.Before(before) {
			r.Status = domain.RunFailed
			r.FinishedAt = &now
			r.Error = "abandoned"
			m.runs[id] = r
			n++
		}
	}
	return n, nil
}

// Runs returns every stored run, newest first.
func (m *MockRunStore) Runs() []domain.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted()
}
