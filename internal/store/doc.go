// Package store defines interfaces for data persistence operations.
//
// The alerting jobs read users, tasks, settings and sessions owned by the
// host application and own two tables of their own: the sent-alert ledger
// and the job run log. These interfaces keep the jobs independent of the
// SQL dialect behind them.
package store
