package store

import (
	"context"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
)

// SessionStore expires stale host-application sessions.
type SessionStore interface {
	// BulkExpire marks every ACTIVE session whose basis time is before
	// cutoff as EXPIRED with logout time now, in a single statement, and
	// returns the number of rows changed.
	BulkExpire(ctx context.Context, basis domain.SweepBasis, cutoff, now time.Time) (int64, error)

	// CountActive returns the number of ACTIVE sessions.
	CountActive(ctx context.Context) (int64, error)
}
