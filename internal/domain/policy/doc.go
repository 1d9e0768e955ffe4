// Package policy turns a task's days-to-deadline into an alert level.
//
// Everything here is pure: no I/O, no clock. The dispatch job supplies
// daysRemaining already computed against the scheduler's calendar day.
package policy
