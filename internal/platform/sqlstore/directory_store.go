package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/store"
)

// Setting keys in the host application's user_settings table.
const (
	SettingEmailAlerts   = "notif_email"
	SettingCriticalDays  = "notif_dias_critico"
	SettingUrgentDays    = "notif_dias_urgente"
	SettingAttentionDays = "notif_dias_atencao"
)

// PreferenceDefaults are applied for settings a user has never saved.
type PreferenceDefaults struct {
	EmailEnabled bool
	Thresholds   domain.Thresholds
}

// DirectoryStore reads users, tasks and notification settings from the
// host application's tables. It implements store.UserDirectory,
// store.TaskSource and store.Preferences.
type DirectoryStore struct {
	db       store.DBTX
	defaults PreferenceDefaults
	logger   *slog.Logger
}

var (
	_ store.UserDirectory = (*DirectoryStore)(nil)
	_ store.TaskSource    = (*DirectoryStore)(nil)
	_ store.Preferences   = (*DirectoryStore)(nil)
)

// NewDirectoryStore creates a DirectoryStore.
func NewDirectoryStore(db store.DBTX, defaults PreferenceDefaults, logger *slog.Logger) *DirectoryStore {
	return &DirectoryStore{
		db:       db,
		defaults: defaults,
		logger:   logger.With(slog.String("component", "directory_store")),
	}
}

type userRow struct {
	ID       int64          `db:"id"`
	Username string         `db:"username"`
	FullName sql.NullString `db:"full_name"`
	Email    sql.NullString `db:"email"`
	Active   bool           `db:"active"`
}

// ListActive implements store.UserDirectory. Inactive users are included so
// the caller can count them as skipped.
func (s *DirectoryStore) ListActive(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, username, full_name, email, active
		FROM users
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", MapError(err))
	}

	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, domain.User{
			ID:       r.ID,
			Username: r.Username,
			FullName: r.FullName.String,
			Email:    r.Email.String,
			Active:   r.Active,
		})
	}
	return users, nil
}

type taskRow struct {
	ID       int64          `db:"id"`
	UserID   int64          `db:"user_id"`
	Title    string         `db:"title"`
	Status   sql.NullString `db:"status"`
	Deadline nullDay        `db:"deadline"`
}

// ListForUser implements store.TaskSource.
func (s *DirectoryStore) ListForUser(ctx context.Context, userID int64, today domain.Day) ([]domain.Task, error) {
	var rows []taskRow
	query := s.db.Rebind(`
		SELECT id, user_id, title, status, deadline
		FROM tasks
		WHERE user_id = ?
		ORDER BY id`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list tasks for user %d: %w", userID, MapError(err))
	}

	tasks := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		t := domain.Task{
			ID:     r.ID,
			UserID: r.UserID,
			Title:  r.Title,
			Status: r.Status.String,
		}
		if r.Deadline.Valid {
			d := r.Deadline.Day
			t.Deadline = &d
		}
		tasks = append(tasks, t.WithDaysRemaining(today))
	}
	return tasks, nil
}

// setting returns the raw value of key for userID and whether it exists.
func (s *DirectoryStore) setting(ctx context.Context, userID int64, key string) (string, bool, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM user_settings WHERE user_id = ? AND key = ?`)
	err := s.db.GetContext(ctx, &value, query, userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s for user %d: %w", key, userID, MapError(err))
	}
	return strings.TrimSpace(value), true, nil
}

// EmailAlertsEnabled implements store.Preferences.
func (s *DirectoryStore) EmailAlertsEnabled(ctx context.Context, userID int64) (bool, error) {
	value, ok, err := s.setting(ctx, userID, SettingEmailAlerts)
	if err != nil {
		return false, err
	}
	if !ok {
		return s.defaults.EmailEnabled, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: setting %s=%q for user %d", store.ErrInvalidEntity, SettingEmailAlerts, value, userID)
	}
	return enabled, nil
}

// Thresholds implements store.Preferences. Missing or unparsable values
// fall back to the configured defaults; unordered results are logged.
func (s *DirectoryStore) Thresholds(ctx context.Context, userID int64) (domain.Thresholds, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	t := s.defaults.Thresholds

	fields := []struct {
		key string
		dst *int
	}{
		{SettingCriticalDays, &t.Critical},
		{SettingUrgentDays, &t.Urgent},
		{SettingAttentionDays, &t.Attention},
	}
	for _, f := range fields {
		value, ok, err := s.setting(ctx, userID, f.key)
		if err != nil {
			return domain.Thresholds{}, err
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			log.Warn("ignoring invalid threshold setting",
				slog.Int64("user_id", userID),
				slog.String("key", f.key),
				slog.String("value", value))
			continue
		}
		*f.dst = n
	}

	if !t.Ordered() {
		log.Warn("user thresholds are not ordered; higher-priority levels win",
			slog.Int64("user_id", userID),
			slog.Int("critical", t.Critical),
			slog.Int("urgent", t.Urgent),
			slog.Int("attention", t.Attention))
	}
	return t, nil
}

// nullDay scans a nullable DATE column. Drivers disagree on the Go type
// they return for dates (time.Time from pgx, text or time.Time from
// SQLite depending on the declared column type), so all of them are
// accepted.
type nullDay struct {
	Day   domain.Day
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullDay) Scan(src any) error {
	n.Valid = false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Day = domain.Day{Year: v.Year(), Month: v.Month(), Dom: v.Day()}
	case string:
		return n.scanText(v)
	case []byte:
		return n.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a day", src)
	}
	n.Valid = true
	return nil
}

func (n *nullDay) scanText(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		return err
	}
	n.Day, n.Valid = d, true
	return nil
}
