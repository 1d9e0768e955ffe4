package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apimiddleware "github.com/phrazzld/duewatch/internal/api/middleware"
	"github.com/phrazzld/duewatch/internal/service/auth"
)

// RouterDeps holds what NewRouter wires together.
type RouterDeps struct {
	Controller Controller

	// JWTService guards /api. When nil the /api routes are not mounted.
	JWTService auth.JWTService

	// RunHistory is the default /api/runs limit.
	RunHistory int

	Logger *slog.Logger
}

// NewRouter builds the HTTP handler for the control API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.NewTraceMiddleware(deps.Logger))

	jobs := NewJobsHandler(deps.Controller, deps.RunHistory)

	r.Get("/healthz", jobs.Health)

	if deps.JWTService == nil {
		deps.Logger.Warn("control API disabled: no jwt secret configured")
		return r
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(deps.JWTService, auth.RoleAdmin)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/jobs", jobs.ListJobs)
		r.Post("/jobs/{name}/trigger", jobs.TriggerJob)
		r.Get("/runs", jobs.ListRuns)
	})

	return r
}
