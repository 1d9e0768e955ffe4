package policy

import "fmt"

// Urgency is the presentation of an alert: the label used in the email
// subject, a highlight colour and the human phrasing of the time left.
type Urgency struct {
	Label   string
	Color   string
	Message string
}

// Describe builds the presentation for an alert with the given days
// remaining. Labels follow the day count rather than the level: overdue and
// due-today tasks get distinct labels although both classify as critical.
func Describe(daysRemaining int) Urgency {
	var u Urgency
	switch {
	case daysRemaining < 0:
		u.Label, u.Color = "CRITICAL - overdue", "#dc3545"
	case daysRemaining == 0:
		u.Label, u.Color = "CRITICAL - due today", "#dc3545"
	case daysRemaining <= 3:
		u.Label, u.Color = "URGENT", "#fd7e14"
	case daysRemaining <= 5:
		u.Label, u.Color = "ATTENTION", "#ffc107"
	default:
		u.Label, u.Color = "NOTICE", "#0d6efd"
	}

	switch {
	case daysRemaining < 0:
		u.Message = fmt.Sprintf("%s overdue", pluralDays(-daysRemaining))
	case daysRemaining == 0:
		u.Message = "due today"
	default:
		u.Message = fmt.Sprintf("%s left", pluralDays(daysRemaining))
	}
	return u
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
