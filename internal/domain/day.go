package domain

import (
	"fmt"
	"time"
)

// dayLayout is the storage and wire form of a Day.
const dayLayout = "2006-01-02"

// Day is a civil calendar date with no time-of-day or zone. Ledger keys and
// deadlines use it so that "today" is decided once, in the scheduler's
// configured location, rather than from the instant a job happens to run.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// DayOf returns the calendar day of t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Dom: d}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t, time.UTC), nil
}

// String renders the day as YYYY-MM-DD. Lexical order equals date order,
// which the ledger relies on for range deletes.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Dom)
}

// Time returns midnight of the day in loc.
func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, n), time.UTC)
}

// Sub returns the number of whole days from other to d.
func (d Day) Sub(other Day) int {
	return int(d.Time(time.UTC).Sub(other.Time(time.UTC)).Hours() / 24)
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d.Sub(other) < 0
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}
