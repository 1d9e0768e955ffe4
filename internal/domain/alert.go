package domain

import "time"

// Level is the severity tier of a deadline alert.
type Level string

// Alert levels in priority order. LevelNone is never persisted.
const (
	LevelCritical  Level = "CRITICAL"
	LevelUrgent    Level = "URGENT"
	LevelAttention Level = "ATTENTION"
	LevelNone      Level = "NONE"
)

// Rank orders levels by severity: higher is more severe.
func (l Level) Rank() int {
	switch l {
	case LevelCritical:
		return 3
	case LevelUrgent:
		return 2
	case LevelAttention:
		return 1
	default:
		return 0
	}
}

// Alert is what the notifier receives for one (user, task, level) send.
type Alert struct {
	ToEmail       string
	ToName        string
	TaskTitle     string
	DeadlineText  string
	DaysRemaining int
	Level         Level
}

// SentAlert is a dedup-ledger row. The first four fields form its identity;
// at most one row exists per (UserID, TaskID, Level, Day).
type SentAlert struct {
	UserID        int64
	TaskID        int64
	Level         Level
	Day           Day
	DaysRemaining int
	SentAt        time.Time
}
