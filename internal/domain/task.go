package domain

import (
	"strings"
	"time"
)

// closedStatusMarkers are lowercase fragments of status names that mark a
// task as finished. They match "Resolved", "Resolvido", "Cancelled" and
// "Cancelado" alike.
var closedStatusMarkers = []string{"resolv", "cancel"}

// Task is a snapshot of a host-application task with a derived
// DaysRemaining. A nil DaysRemaining means the task has no deadline.
type Task struct {
	ID            int64
	UserID        int64
	Title         string
	Status        string
	Deadline      *Day
	DaysRemaining *int
}

// IsClosed reports whether the status text marks the task as resolved or
// cancelled. Matching is a case-insensitive substring test.
func (t Task) IsClosed() bool {
	return IsClosedStatus(t.Status)
}

// IsClosedStatus is the status test used by IsClosed.
func IsClosedStatus(status string) bool {
	s := strings.ToLower(status)
	for _, marker := range closedStatusMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// DeadlineText formats the deadline the way alert emails display it
// (dd/mm/yyyy), or returns an empty string when there is no deadline.
func (t Task) DeadlineText() string {
	if t.Deadline == nil {
		return ""
	}
	return t.Deadline.Time(time.UTC).Format("02/01/2006")
}

// WithDaysRemaining returns a copy of t with DaysRemaining derived from its
// deadline relative to today. Tasks without a deadline keep a nil value.
func (t Task) WithDaysRemaining(today Day) Task {
	if t.Deadline == nil {
		t.DaysRemaining = nil
		return t
	}
	d := t.Deadline.Sub(today)
	t.DaysRemaining = &d
	return t
}
