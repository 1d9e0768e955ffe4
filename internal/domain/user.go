package domain

import "strings"

// User is a snapshot of a host-application account as seen by the alerting
// jobs. The host application owns the record; jobs never write it.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Active   bool   `db:"active" json:"active"`
}

// DisplayName returns the name used to greet the user in alert emails.
// The full name wins when present, otherwise the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}

// Thresholds are the per-user day counts that bound each alert band.
// A task whose days remaining is at or below a threshold falls into that
// band; bands are checked in the order Critical, Urgent, Attention.
type Thresholds struct {
	Critical  int `json:"critical"`
	Urgent    int `json:"urgent"`
	Attention int `json:"attention"`
}

// DefaultThresholds mirrors the defaults a new account starts with.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 0, Urgent: 3, Attention: 5}
}

// Ordered reports whether critical <= urgent <= attention. Out-of-order
// thresholds still classify (critical is checked first) but usually point
// to a misconfigured account.
func (t Thresholds) Ordered() bool {
	return t.Critical <= t.Urgent && t.Urgent <= t.Attention
}
