package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
)

type ledgerKey struct {
	userID, taskID int64
	level          domain.Level
	day            domain.Day
}

// MockLedgerStore is an in-memory store.LedgerStore.
type MockLedgerStore struct {
	ExistsFn       func(ctx context.Context, userID, taskID int64, level domain.Level, day domain.Day) (bool, error)
	InsertFn       func(ctx context.Context, rec domain.SentAlert) error
	DeleteBeforeFn func(ctx context.Context, day domain.Day) (int64, error)

	mu      sync.Mutex
	records map[ledgerKey]domain.SentAlert
	Inserts int
}

var _ store.LedgerStore = (*MockLedgerStore)(nil)

// NewMockLedgerStore creates an empty MockLedgerStore.
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{records: make(map[ledgerKey]domain.SentAlert)}
}

// Exists implements store.LedgerStore
func (m *MockLedgerStore) Exists(ctx context.Context, userID, taskID int64, level domain.Level, day domain.Day) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, userID, taskID, level, day)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[ledgerKey{userID, taskID, level, day}]
	return ok, nil
}

// Insert implements store.LedgerStore
func (m *MockLedgerStore) Insert(ctx context.Context, rec domain.SentAlert) error {
	m.mu.Lock()
	m.Inserts++
	m.mu.Unlock()

	if m.InsertFn != nil {
		return m.InsertFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey{rec.UserID, rec.TaskID, rec.Level, rec.Day}
	if _, ok := m.records[key]; ok {
		return fmt.Errorf("%w: user=%d task=%d", store.ErrDuplicateAlert, rec.UserID, rec.TaskID)
	}
	m.records[key] = rec
	return nil
}

// DeleteBefore implements store.LedgerStore
func (m *MockLedgerStore) DeleteBefore(ctx context.Context, day domain.Day) (int64, error) {
	if m.DeleteBeforeFn != nil {
		return m.DeleteBeforeFn(ctx, day)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.day.Before(day) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

// CountOn implements store.LedgerStore
func (m *MockLedgerStore) CountOn(ctx context.Context, day domain.Day) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.day == day {
			n++
		}
	}
	return n, nil
}

// Records returns a snapshot of every stored record.
func (m *MockLedgerStore) Records() []domain.SentAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SentAlert, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

// Seed stores rec directly, bypassing InsertFn and the call counter.
func (m *MockLedgerStore) Seed(rec domain.SentAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ledgerKey{rec.UserID, rec.TaskID, rec.Level, rec.Day}] = rec
}
