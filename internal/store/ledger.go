package store

import (
	"context"

	"github.com/phrazzld/duewatch/internal/domain"
)

// LedgerStore persists sent-alert records.
type LedgerStore interface {
	// Exists reports whether a record with exactly this key is present.
	Exists(ctx context.Context, userID, taskID int64, level domain.Level, day domain.Day) (bool, error)

	// Insert stores a new record.
	// Returns ErrDuplicateAlert if the (user, task, level, day) key exists.
	Insert(ctx context.Context, rec domain.SentAlert) error

	// DeleteBefore removes every record whose day is strictly earlier than
	// day and returns how many were removed.
	DeleteBefore(ctx context.Context, day domain.Day) (int64, error)

	// CountOn returns the number of records for the given day.
	CountOn(ctx context.Context, day domain.Day) (int64, error)
}
