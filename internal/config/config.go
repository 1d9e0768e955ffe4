package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Alerts    AlertsConfig    `mapstructure:"alerts" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

// ServerConfig contains the HTTP control API and logging settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFile         string        `mapstructure:"log_file"`
	LogMaxSizeMB    int           `mapstructure:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups   int           `mapstructure:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays   int           `mapstructure:"log_max_age_days" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// Driver "sqlite" takes a file path or file: URI as URL; driver "pgx"
// takes a postgres:// connection string.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=sqlite pgx"`
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// SchedulerConfig controls job cadence, time zone and execution limits.
type SchedulerConfig struct {
	// Timezone is an IANA name ("America/Sao_Paulo") or "Local". It decides
	// what "today" means for the ledger and where 03:00 falls for retention.
	Timezone string `mapstructure:"timezone" validate:"required"`

	AlertInterval   time.Duration `mapstructure:"alert_interval" validate:"gt=0"`
	AlertRunOnStart bool          `mapstructure:"alert_run_on_start"`

	// Schedules accept standard 5-field cron expressions and descriptors
	// such as "@every 1h" or "@daily".
	SessionSweepSchedule string `mapstructure:"session_sweep_schedule" validate:"required"`
	RetentionSchedule    string `mapstructure:"retention_schedule" validate:"required"`

	RetentionDays         int    `mapstructure:"retention_days" validate:"gte=1"`
	SessionTimeoutMinutes int    `mapstructure:"session_timeout_minutes" validate:"gte=1"`
	SweepBasis            string `mapstructure:"sweep_basis" validate:"required,oneof=login activity"`

	WorkerCount int           `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gte=1"`
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	RunHistory  int           `mapstructure:"run_history" validate:"gte=1"`
}

// Location resolves Timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// AlertsConfig holds the defaults applied when a user has no stored
// notification settings.
type AlertsConfig struct {
	EmailEnabledDefault bool `mapstructure:"email_enabled_default"`
	CriticalDays        int  `mapstructure:"critical_days" validate:"gte=0"`
	UrgentDays          int  `mapstructure:"urgent_days" validate:"gte=0"`
	AttentionDays       int  `mapstructure:"attention_days" validate:"gte=0"`
}

// MailConfig contains SMTP settings. When Enabled is false alerts are
// logged instead of emailed.
type MailConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host" validate:"required_if=Enabled true"`
	Port        int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	FromAddress string        `mapstructure:"from_address" validate:"required_if=Enabled true"`
	FromName    string        `mapstructure:"from_name"`
	AppURL      string        `mapstructure:"app_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// AuthConfig contains the control API credentials. An empty secret leaves
// the /api routes unmounted.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// Warnings returns non-fatal configuration problems worth logging at
// startup.
func (c *Config) Warnings() []string {
	var out []string
	a := c.Alerts
	if a.CriticalDays > a.UrgentDays || a.UrgentDays > a.AttentionDays {
		out = append(out, fmt.Sprintf(
			"default alert thresholds are not ordered (critical=%d urgent=%d attention=%d); higher-priority levels still win",
			a.CriticalDays, a.UrgentDays, a.AttentionDays))
	}
	if !c.Mail.Enabled {
		out = append(out, "mail delivery disabled; alerts will only be logged")
	}
	if c.Auth.JWTSecret == "" {
		out = append(out, "auth.jwt_secret not set; control API routes are disabled")
	}
	return out
}
