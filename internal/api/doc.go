// Package api exposes the scheduler control surface over HTTP: job state,
// manual triggers and the run log. Everything under /api requires an admin
// bearer token; /healthz is public.
package api
