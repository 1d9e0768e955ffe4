// Package task provides the in-process execution layer the scheduler runs
// job ticks on: a bounded queue and a fixed-size pool of workers that drain
// it. A full queue rejects work instead of blocking the caller, and the pool
// can stop either by draining or by cancelling in-flight work.
package task
