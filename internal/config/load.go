package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable Load reads, so
// scheduler.alert_interval is read from DUEWATCH_SCHEDULER_ALERT_INTERVAL.
const EnvPrefix = "DUEWATCH"

// ConfigFileEnv names the environment variable holding an explicit path to
// a YAML config file.
const ConfigFileEnv = "DUEWATCH_CONFIG"

// setDefaults registers every key with viper. AutomaticEnv only overrides
// keys viper already knows about, so each field needs a default here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_file", "")
	v.SetDefault("server.log_max_size_mb", 50)
	v.SetDefault("server.log_max_backups", 5)
	v.SetDefault("server.log_max_age_days", 28)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "duewatch.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.alert_interval", "1h")
	v.SetDefault("scheduler.alert_run_on_start", true)
	v.SetDefault("scheduler.session_sweep_schedule", "@every 1h")
	v.SetDefault("scheduler.retention_schedule", "0 3 * * *")
	v.SetDefault("scheduler.retention_days", 30)
	v.SetDefault("scheduler.session_timeout_minutes", 30)
	v.SetDefault("scheduler.sweep_basis", "login")
	v.SetDefault("scheduler.worker_count", 2)
	v.SetDefault("scheduler.queue_size", 16)
	v.SetDefault("scheduler.call_timeout", "30s")
	v.SetDefault("scheduler.run_history", 100)

	v.SetDefault("alerts.email_enabled_default", true)
	v.SetDefault("alerts.critical_days", 0)
	v.SetDefault("alerts.urgent_days", 3)
	v.SetDefault("alerts.attention_days", 5)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_address", "")
	v.SetDefault("mail.from_name", "Duewatch")
	v.SetDefault("mail.app_url", "http://localhost:8080")
	v.SetDefault("mail.timeout", "30s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", "24h")
}

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first when present; it
// never overrides variables already set in the process environment.
// Environment variables take precedence over values from the YAML file named
// by DUEWATCH_CONFIG (or ./duewatch.yaml when that exists).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("duewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags and cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := cfg.Scheduler.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
