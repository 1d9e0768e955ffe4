package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
)

// MockUserDirectory implements store.UserDirectory for testing
type MockUserDirectory struct {
	ListActiveFn func(ctx context.Context) ([]domain.User, error)

	Users []domain.User
	Err   error

	mu    sync.Mutex
	Calls int
}

var _ store.UserDirectory = (*MockUserDirectory)(nil)

// ListActive implements store.UserDirectory
func (m *MockUserDirectory) ListActive(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx)
	}
	return m.Users, m.Err
}

// MockTaskSource implements store.TaskSource for testing. Tasks are keyed
// by owner; DaysRemaining is derived from each task's Deadline and today.
type MockTaskSource struct {
	ListForUserFn func(ctx context.Context, userID int64, today domain.Day) ([]domain.Task, error)

	Tasks map[int64][]domain.Task
	Errs  map[int64]error

	mu      sync.Mutex
	UserIDs []int64
}

var _ store.TaskSource = (*MockTaskSource)(nil)

// ListForUser implements store.TaskSource
func (m *MockTaskSource) ListForUser(ctx context.Context, userID int64, today domain.Day) ([]domain.Task, error) {
	m.mu.Lock()
	m.UserIDs = append(m.UserIDs, userID)
	m.mu.Unlock()

	if m.ListForUserFn != nil {
		return m.ListForUserFn(ctx, userID, today)
	}
	if err := m.Errs[userID]; err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(m.Tasks[userID]))
	for _, t := range m.Tasks[userID] {
		out = append(out, t.WithDaysRemaining(today))
	}
	return out, nil
}

// MockPreferences implements store.Preferences for testing. Users absent
// from the maps get email enabled and default thresholds.
type MockPreferences struct {
	EmailAlertsEnabledFn func(ctx context.Context, userID int64) (bool, error)
	ThresholdsFn         func(ctx context.Context, userID int64) (domain.Thresholds, error)

	Disabled       map[int64]bool
	EnabledErrs    map[int64]error
	PerUser        map[int64]domain.Thresholds
	ThresholdsErrs map[int64]error
}

var _ store.Preferences = (*MockPreferences)(nil)

// EmailAlertsEnabled implements store.Preferences
func (m *MockPreferences) EmailAlertsEnabled(ctx context.Context, userID int64) (bool, error) {
	if m.EmailAlertsEnabledFn != nil {
		return m.EmailAlertsEnabledFn(ctx, userID)
	}
	if err := m.EnabledErrs[userID]; err != nil {
		return false, err
	}
	return !m.Disabled[userID], nil
}

// Thresholds implements store.Preferences
func (m *MockPreferences) Thresholds(ctx context.Context, userID int64) (domain.Thresholds, error) {
	if m.ThresholdsFn != nil {
		return m.ThresholdsFn(ctx, userID)
	}
	if err := m.ThresholdsErrs[userID]; err != nil {
		return domain.Thresholds{}, err
	}
	if t, ok := m.PerUser[userID]; ok {
		return t, nil
	}
	return domain.DefaultThresholds(), nil
}
