// Package domain contains the entities the alerting engine reads and writes:
// users with their notification thresholds, tasks with deadlines, alert
// levels, sent-alert ledger records and sessions. These are snapshots fetched
// per job run; persistence lives in the platform packages.
package domain
