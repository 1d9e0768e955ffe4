package store

import (
	"context"

	"github.com/phrazzld/duewatch/internal/domain"
)

// UserDirectory lists host-application users. The returned slice includes
// inactive users; callers check User.Active.
type UserDirectory interface {
	ListActive(ctx context.Context) ([]domain.User, error)
}

// TaskSource lists the tasks owned by a user, with DaysRemaining computed
// against today.
type TaskSource interface {
	ListForUser(ctx context.Context, userID int64, today domain.Day) ([]domain.Task, error)
}

// Preferences reads per-user notification settings. Missing settings
// resolve to configured defaults rather than errors.
type Preferences interface {
	EmailAlertsEnabled(ctx context.Context, userID int64) (bool, error)
	Thresholds(ctx context.Context, userID int64) (domain.Thresholds, error)
}
