package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/store"
)

// RunStore implements store.RunStore over the job_runs table.
type RunStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.RunStore = (*RunStore)(nil)

// NewRunStore creates a RunStore.
func NewRunStore(db store.DBTX, logger *slog.Logger) *RunStore {
	return &RunStore{db: db, logger: logger.With(slog.String("component", "run_store"))}
}

type runRow struct {
	ID         string       `db:"id"`
	Job        string       `db:"job"`
	Trigger    string       `db:"run_trigger"`
	Status     string       `db:"status"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
	Processed  int64        `db:"processed"`
	Error      string       `db:"error"`
}

func (r runRow) toDomain() (domain.JobRun, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.JobRun{}, fmt.Errorf("%w: run id %q: %v", store.ErrInvalidEntity, r.ID, err)
	}
	run := domain.JobRun{
		ID:        id,
		Job:       r.Job,
		Trigger:   domain.RunTrigger(r.Trigger),
		Status:    domain.RunStatus(r.Status),
		StartedAt: r.StartedAt,
		Processed: r.Processed,
		Error:     r.Error,
	}
	if r.FinishedAt.Valid {
		finished := r.FinishedAt.Time
		run.FinishedAt = &finished
	}
	return run, nil
}

const runColumns = `id, job, run_trigger, status, started_at, finished_at, processed, error`

// Create implements store.RunStore.
func (s *RunStore) Create(ctx context.Context, run domain.JobRun) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("%w: run id is required", store.ErrInvalidEntity)
	}
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO job_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(), run.Job, string(run.Trigger), string(run.Status),
		run.StartedAt.UTC(), finished, run.Processed, run.Error)
	if err != nil {
		return fmt.Errorf("failed to create job run: %w", MapError(err))
	}
	return nil
}

// Finish implements store.RunStore.
func (s *RunStore) Finish(ctx context.Context, run domain.JobRun) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	query := s.db.Rebind(`
		UPDATE job_runs
		SET status = ?, finished_at = ?, processed = ?, error = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		string(run.Status), finished.UTC(), run.Processed, run.Error, run.ID.String())
	if err != nil {
		return fmt.Errorf("failed to finish job run: %w", MapError(err))
	}
	return checkRowsAffected(result, fmt.Errorf("%w: %s", store.ErrRunNotFound, run.ID))
}

// Recent implements store.RunStore.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	query := s.db.Rebind(`
		SELECT ` + runColumns + `
		FROM job_runs
		ORDER BY started_at DESC, id
		LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", MapError(err))
	}
	runs := make([]domain.JobRun, 0, len(rows))
	for _, r := range rows {
		run, err := r.toDomain()
		if err != nil {
			s.logger.Warn("skipping unreadable job run", slog.String("error", err.Error()))
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// LastFor implements store.RunStore.
func (s *RunStore) LastFor(ctx context.Context, job string) (domain.JobRun, error) {
	var row runRow
	query := s.db.Rebind(`
		SELECT ` + runColumns + `
		FROM job_runs
		WHERE job = ?
		ORDER BY started_at DESC
		LIMIT 1`)
	err := s.db.GetContext(ctx, &row, query, job)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobRun{}, fmt.Errorf("%w: job %s", store.ErrRunNotFound, job)
	}
	if err != nil {
		return domain.JobRun{}, fmt.Errorf("failed to load last run of %s: %w", job, MapError(err))
	}
	return row.toDomain()
}

// MarkAbandoned implements store.RunStore.
func (s *RunStore) MarkAbandoned(ctx context.Context, before time.Time) (int64, error) {
	query := s.db.Rebind(`
		UPDATE job_runs
		SET status = ?, finished_at = ?, error = ?
		WHERE status = ? AND started_at < ?`)
	result, err := s.db.ExecContext(ctx, query,
		string(domain.RunFailed), time.Now().UTC(), "abandoned: process exited before the run finished",
		string(domain.RunRunning), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark abandoned runs: %w", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
