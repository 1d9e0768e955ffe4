// Package dispatch implements the periodic deadline-alert job: it walks
// every active user's open tasks, classifies each by days remaining, and
// emails one alert per (user, task, level) per day.
//
// Failures are isolated per user and per task. A user whose tasks cannot
// be read is skipped for this run; a send failure leaves no ledger record
// so the alert is retried on the next run.
package dispatch
