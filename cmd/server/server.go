package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// serve starts the scheduler and the control API on the configured port
// and blocks until ctx is cancelled or the listener fails.
func (app *application) serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serveOn(ctx, ln)
}

// serveOn runs the daemon on ln. On shutdown the HTTP server stops
// accepting requests first, then the scheduler drains its in-flight runs.
// Both steps share the configured shutdown timeout.
func (app *application) serveOn(ctx context.Context, ln net.Listener) error {
	if err := app.manager.Start(); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := &http.Server{
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("control API listening", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("control API failed", slog.Any("error", err))
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("control API shutdown failed", slog.Any("error", err))
	}

	stopped := make(chan struct{})
	go func() {
		app.manager.Stop(true)
		close(stopped)
	}()
	select {
	case <-stopped:
		app.logger.Info("shutdown completed")
	case <-shutdownCtx.Done():
		app.logger.Warn("shutdown timed out with jobs still running; they will be marked abandoned on next start")
	}

	return runErr
}
