// Package scheduler owns the recurring jobs of the service. A Manager
// registers jobs on cron schedules, runs each tick on a bounded worker
// pool and records every run in the run log.
//
// A job never overlaps itself: a tick that arrives while the previous run
// of the same job is still executing is skipped. Different jobs run in
// parallel up to the worker count.
package scheduler
