package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
)

// MockSession is a session row held by MockSessionStore.
type MockSession struct {
	ID           string
	LoginTime    time.Time
	LastActivity *time.Time
	LogoutTime   *time.Time
	Status       domain.SessionStatus
}

// MockSessionStore is an in-memory store.SessionStore.
type MockSessionStore struct {
	BulkExpireFn  func(ctx context.Context, basis domain.SweepBasis, cutoff, now time.Time) (int64, error)
	CountActiveFn func(ctx context.Context) (int64, error)

	mu       sync.Mutex
	Sessions []*MockSession
	Cutoffs  []time.Time
}

var _ store.SessionStore = (*MockSessionStore)(nil)

// BulkExpire implements store.SessionStore
func (m *MockSessionStore) BulkExpire(ctx context.Context, basis domain.SweepBasis, cutoff, now time.Time) (int64, error) {
	m.mu.Lock()
	m.Cutoffs = append(m.Cutoffs, cutoff)
	m.mu.Unlock()

	if m.BulkExpireFn != nil {
		return m.BulkExpireFn(ctx, basis, cutoff, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.Sessions {
		if s.Status != domain.SessionActive {
			continue
		}
		ref := s.LoginTime
		if basis == domain.SweepByActivity && s.LastActivity != nil {
			ref = *s.LastActivity
		}
		if ref.Before(cutoff) {
			s.Status = domain.SessionExpired
			logout := now
			s.LogoutTime = &logout
			n++
		}
	}
	return n, nil
}

// CountActive implements store.SessionStore
func (m *MockSessionStore) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFn != nil {
		return m.CountActiveFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.Sessions {
		if s.Status == domain.SessionActive {
			n++
		}
	}
	return n, nil
}
