package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/domain/policy"
	"github.com/phrazzld/duewatch/internal/ledger"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/store"
)

// JobName is the scheduler name of the dispatch job.
const JobName = "alert-dispatch"

// Notifier delivers a single alert.
type Notifier interface {
	SendAlert(ctx context.Context, alert domain.Alert) error
}

// Deps holds the collaborators of the dispatch job.
type Deps struct {
	Users       store.UserDirectory
	Tasks       store.TaskSource
	Preferences store.Preferences
	Ledger      *ledger.Ledger
	Notifier    Notifier
}

func (d Deps) validate() error {
	switch {
	case d.Users == nil:
		return errors.New("dispatch: user directory is required")
	case d.Tasks == nil:
		return errors.New("dispatch: task source is required")
	case d.Preferences == nil:
		return errors.New("dispatch: preferences are required")
	case d.Ledger == nil:
		return errors.New("dispatch: ledger is required")
	case d.Notifier == nil:
		return errors.New("dispatch: notifier is required")
	}
	return nil
}

// Job is the alert-dispatch job.
type Job struct {
	deps        Deps
	callTimeout time.Duration
	logger      *slog.Logger
}

// New creates the dispatch job. Each directory, preference, task and ledger
// call is bounded by callTimeout; zero means unbounded.
func New(deps Deps, callTimeout time.Duration, logger *slog.Logger) (*Job, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Job{
		deps:        deps,
		callTimeout: callTimeout,
		logger:      logger.With(slog.String("component", "dispatch")),
	}, nil
}

// Name returns the job name.
func (j *Job) Name() string { return JobName }

// Stats reports the number of alerts recorded today.
func (j *Job) Stats(ctx context.Context) map[string]any {
	callCtx, cancel := j.bounded(ctx)
	defer cancel()

	n, err := j.deps.Ledger.CountSentOn(callCtx, j.deps.Ledger.Today())
	if err != nil {
		j.logger.Warn("failed to count today's alerts", slog.String("error", err.Error()))
		return nil
	}
	return map[string]any{"alerts_sent_today": n}
}

// Run performs one dispatch pass and returns the number of alerts sent.
// Only a failure to list users, or cancellation, fails the run.
func (j *Job) Run(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, j.logger)
	today := j.deps.Ledger.Today()

	users, err := j.listUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var sent int64
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		n, err := j.processUser(ctx, u, today)
		sent += n
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sent, ctxErr
			}
			log.Warn("skipping user after error",
				slog.Int64("user_id", u.ID),
				slog.String("error", err.Error()))
		}
	}

	log.Info("alert dispatch finished",
		slog.String("day", today.String()),
		slog.Int("users", len(users)),
		slog.Int64("sent", sent))
	return sent, nil
}

func (j *Job) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if j.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, j.callTimeout)
}

func (j *Job) listUsers(ctx context.Context) ([]domain.User, error) {
	callCtx, cancel := j.bounded(ctx)
	defer cancel()
	return j.deps.Users.ListActive(callCtx)
}

// processUser sends every due alert for one user. It returns the number
// sent even when it stops early with an error.
func (j *Job) processUser(ctx context.Context, u domain.User, today domain.Day) (int64, error) {
	log := logger.FromContextOrDefault(ctx, j.logger).With(slog.Int64("user_id", u.ID))

	if !u.Active {
		log.Debug("user inactive")
		return 0, nil
	}

	if !j.emailEnabled(ctx, log, u.ID) {
		log.Debug("email alerts disabled")
		return 0, nil
	}

	if u.Email == "" {
		log.Warn("user has no email address")
		return 0, nil
	}

	thresholds, tasks, err := j.loadUser(ctx, u.ID, today)
	if err != nil {
		return 0, err
	}

	var sent int64
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if j.processTask(ctx, log, u, t, thresholds, today) {
			sent++
		}
	}
	return sent, nil
}

// emailEnabled treats a failed lookup as disabled.
func (j *Job) emailEnabled(ctx context.Context, log *slog.Logger, userID int64) bool {
	callCtx, cancel := j.bounded(ctx)
	defer cancel()

	enabled, err := j.deps.Preferences.EmailAlertsEnabled(callCtx, userID)
	if err != nil {
		log.Warn("email preference lookup failed, treating as disabled",
			slog.String("error", err.Error()))
		return false
	}
	return enabled
}

func (j *Job) loadUser(
	ctx context.Context,
	userID int64,
	today domain.Day,
) (domain.Thresholds, []domain.Task, error) {
	callCtx, cancel := j.bounded(ctx)
	defer cancel()

	thresholds, err := j.deps.Preferences.Thresholds(callCtx, userID)
	if err != nil {
		return domain.Thresholds{}, nil, fmt.Errorf("failed to load thresholds: %w", err)
	}

	tasksCtx, cancelTasks := j.bounded(ctx)
	defer cancelTasks()

	tasks, err := j.deps.Tasks.ListForUser(tasksCtx, userID, today)
	if err != nil {
		return domain.Thresholds{}, nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return thresholds, tasks, nil
}

// processTask reports whether an alert went out for t.
func (j *Job) processTask(
	ctx context.Context,
	log *slog.Logger,
	u domain.User,
	t domain.Task,
	thresholds domain.Thresholds,
	today domain.Day,
) bool {
	level := policy.Evaluate(t, thresholds)
	if level == domain.LevelNone {
		return false
	}
	log = log.With(slog.Int64("task_id", t.ID), slog.String("level", string(level)))

	checkCtx, cancel := j.bounded(ctx)
	already, err := j.deps.Ledger.AlreadySent(checkCtx, u.ID, t.ID, level, today)
	cancel()
	if err != nil {
		log.Warn("ledger check failed, skipping task", slog.String("error", err.Error()))
		return false
	}
	if already {
		log.Debug("alert already sent today")
		return false
	}

	alert := domain.Alert{
		ToEmail:       u.Email,
		ToName:        u.DisplayName(),
		TaskTitle:     t.Title,
		DeadlineText:  t.DeadlineText(),
		DaysRemaining: *t.DaysRemaining,
		Level:         level,
	}
	// A send in progress runs to completion; cancellation is honoured
	// between tasks.
	err = j.deps.Notifier.SendAlert(context.WithoutCancel(ctx), alert)
	switch {
	case errors.Is(err, domain.ErrDeliveryDisabled):
		log.Debug("alert not delivered, mail disabled")
		return false
	case err != nil:
		log.Warn("failed to send alert", slog.String("error", err.Error()))
		return false
	}

	// The email is out; record it even if the run is being cancelled.
	recCtx, cancelRec := j.bounded(context.WithoutCancel(ctx))
	defer cancelRec()

	err = j.deps.Ledger.RecordSent(recCtx, domain.SentAlert{
		UserID:        u.ID,
		TaskID:        t.ID,
		Level:         level,
		Day:           today,
		DaysRemaining: *t.DaysRemaining,
	})
	switch {
	case errors.Is(err, store.ErrDuplicateAlert):
		log.Warn("alert already recorded after send")
	case err != nil:
		log.Error("failed to record sent alert", slog.String("error", err.Error()))
	default:
		log.Info("alert sent", slog.Int("days_remaining", *t.DaysRemaining))
	}
	return true
}
