package domain

// SessionStatus is the lifecycle state of a host-application session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionExpired SessionStatus = "EXPIRED"
)

// SweepBasis selects which timestamp a session sweep measures staleness from.
type SweepBasis string

const (
	// SweepByLogin expires sessions whose login time plus the timeout has
	// passed, regardless of activity.
	SweepByLogin SweepBasis = "login"

	// SweepByActivity uses the last-activity time, falling back to login
	// time for sessions that never recorded activity.
	SweepByActivity SweepBasis = "activity"
)
