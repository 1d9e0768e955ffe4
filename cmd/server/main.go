// Package main is the duewatch daemon. It periodically emails deadline
// alerts to the host application's users, expires stale sessions and prunes
// the sent-alert ledger, and exposes a small authenticated control API.
//
// Usage:
//
//	duewatch                     run the scheduler and control API until SIGINT/SIGTERM
//	duewatch -migrate up         apply owned migrations (up, down or status) and exit
//	duewatch -run session-sweep  run one job synchronously and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/platform/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "duewatch: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	migrate string
	runJob  string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("duewatch", flag.ContinueOnError)
	fs.StringVar(&opts.migrate, "migrate", "", "apply a migration command (up, down, status) and exit")
	fs.StringVar(&opts.runJob, "run", "", "run the named job once and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.migrate != "" && opts.runJob != "" {
		return options{}, errors.New("-migrate and -run cannot be combined")
	}
	return opts, nil
}

// run loads configuration, opens the database and performs whichever mode
// the flags select. It returns when that mode finishes or ctx is cancelled.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, closer, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() { _ = closer.Close() }()

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("timezone", cfg.Scheduler.Timezone))
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	db, err := sqlstore.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.Any("error", err))
		}
	}()

	migrator, err := sqlstore.NewMigrator(db, log)
	if err != nil {
		return err
	}
	if opts.migrate != "" {
		return migrator.Run(ctx, opts.migrate)
	}
	if err := migrator.Up(ctx); err != nil {
		return err
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		return err
	}

	if opts.runJob != "" {
		return app.runOnce(ctx, opts.runJob)
	}
	return app.serve(ctx)
}
