package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/duewatch/internal/api"
	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/dispatch"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/ledger"
	"github.com/phrazzld/duewatch/internal/platform/mailer"
	"github.com/phrazzld/duewatch/internal/platform/sqlstore"
	"github.com/phrazzld/duewatch/internal/scheduler"
	"github.com/phrazzld/duewatch/internal/service/auth"
	"github.com/phrazzld/duewatch/internal/sweeper"
)

// application holds the wired components of a running daemon.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sqlx.DB

	ledger     *ledger.Ledger
	manager    *scheduler.Manager
	jwtService auth.JWTService
}

// appOption customizes newApplication.
type appOption func(*appSettings)

type appSettings struct {
	notifier dispatch.Notifier
}

// withNotifier replaces the notifier selected from the mail configuration.
func withNotifier(n dispatch.Notifier) appOption {
	return func(s *appSettings) { s.notifier = n }
}

// newApplication builds the stores, jobs and scheduler on top of an open
// database. It does not start anything.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sqlx.DB, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	settings := appSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.notifier == nil {
		settings.notifier = newNotifier(cfg.Mail, logger)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	directory := sqlstore.NewDirectoryStore(db, sqlstore.PreferenceDefaults{
		EmailEnabled: cfg.Alerts.EmailEnabledDefault,
		Thresholds: domain.Thresholds{
			Critical:  cfg.Alerts.CriticalDays,
			Urgent:    cfg.Alerts.UrgentDays,
			Attention: cfg.Alerts.AttentionDays,
		},
	}, logger)

	app.ledger = ledger.New(sqlstore.NewLedgerStore(db, logger), loc, logger)

	alerts, err := dispatch.New(dispatch.Deps{
		Users:       directory,
		Tasks:       directory,
		Preferences: directory,
		Ledger:      app.ledger,
		Notifier:    settings.notifier,
	}, cfg.Scheduler.CallTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build alert dispatch job: %w", err)
	}

	sweep := sweeper.New(
		sqlstore.NewSessionStore(db, logger),
		domain.SweepBasis(cfg.Scheduler.SweepBasis),
		cfg.Scheduler.CallTimeout,
		logger,
	)

	app.manager = scheduler.NewManager(scheduler.Config{
		WorkerCount: cfg.Scheduler.WorkerCount,
		QueueSize:   cfg.Scheduler.QueueSize,
		Location:    loc,
	}, logger, sqlstore.NewRunStore(db, logger),
		scheduler.JobSpec{
			Job:        alerts,
			Schedule:   fmt.Sprintf("@every %s", cfg.Scheduler.AlertInterval),
			RunOnStart: cfg.Scheduler.AlertRunOnStart,
		},
		scheduler.JobSpec{
			Job:      sweeper.NewJob(sweep, cfg.Scheduler.SessionTimeoutMinutes),
			Schedule: cfg.Scheduler.SessionSweepSchedule,
		},
		scheduler.JobSpec{
			Job:      ledger.NewRetentionJob(app.ledger, cfg.Scheduler.RetentionDays, cfg.Scheduler.CallTimeout),
			Schedule: cfg.Scheduler.RetentionSchedule,
		},
	)

	if cfg.Auth.JWTSecret != "" {
		app.jwtService, err = auth.NewJWTService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
	}

	return app, nil
}

// newNotifier picks SMTP delivery when mail is enabled and falls back to
// logging each alert otherwise.
func newNotifier(cfg config.MailConfig, logger *slog.Logger) dispatch.Notifier {
	if cfg.Enabled {
		return mailer.NewSMTPNotifier(cfg, logger)
	}
	return mailer.NewLogNotifier(cfg.AppURL, logger)
}

// router returns the control API handler.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Controller: app.manager,
		JWTService: app.jwtService,
		RunHistory: app.config.Scheduler.RunHistory,
		Logger:     app.logger,
	})
}

// runOnce executes a single job synchronously and logs its outcome.
func (app *application) runOnce(ctx context.Context, name string) error {
	run, err := app.manager.RunNow(ctx, name)
	if err != nil {
		return err
	}
	app.logger.Info("job finished",
		slog.String("job", run.Job),
		slog.String("status", string(run.Status)),
		slog.Int64("processed", run.Processed),
		slog.Duration("duration", run.Duration()))
	return nil
}
