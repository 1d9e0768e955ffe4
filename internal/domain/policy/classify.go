package policy

import "github.com/phrazzld/duewatch/internal/domain"

// Classify maps days remaining onto an alert level for the given thresholds.
//
// Parameters:
//   - daysRemaining: whole days until the deadline; negative when overdue,
//     nil when the task has no deadline
//   - t: the owner's thresholds
//
// Returns:
//   - LevelCritical when overdue or daysRemaining <= t.Critical
//   - LevelUrgent when daysRemaining <= t.Urgent
//   - LevelAttention when daysRemaining <= t.Attention
//   - LevelNone otherwise, including for a nil daysRemaining
//
// Bands are tested in priority order. With unordered thresholds (for
// example Urgent < Critical) the more severe band still wins, so a value
// never lands in a less severe level than an earlier band admits.
func Classify(daysRemaining *int, t domain.Thresholds) domain.Level {
	if daysRemaining == nil {
		return domain.LevelNone
	}

	d := *daysRemaining
	switch {
	case d < 0 || d <= t.Critical:
		return domain.LevelCritical
	case d <= t.Urgent:
		return domain.LevelUrgent
	case d <= t.Attention:
		return domain.LevelAttention
	default:
		return domain.LevelNone
	}
}

// Evaluate applies status exclusion and classification to a task in one
// step. Closed tasks and tasks without a deadline yield LevelNone.
func Evaluate(task domain.Task, t domain.Thresholds) domain.Level {
	if task.IsClosed() {
		return domain.LevelNone
	}
	return Classify(task.DaysRemaining, t)
}
