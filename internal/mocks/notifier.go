package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/duewatch/internal/domain"
)

// MockNotifier records every alert it is asked to send.
type MockNotifier struct {
	SendAlertFn func(ctx context.Context, alert domain.Alert) error

	mu   sync.Mutex
	Sent []domain.Alert
}

// SendAlert records alert and returns SendAlertFn's result, or nil. Alerts
// for which SendAlertFn fails are not recorded.
func (m *MockNotifier) SendAlert(ctx context.Context, alert domain.Alert) error {
	if m.SendAlertFn != nil {
		if err := m.SendAlertFn(ctx, alert); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, alert)
	return nil
}

// Alerts returns a copy of the recorded alerts.
func (m *MockNotifier) Alerts() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alert(nil), m.Sent...)
}
