// Package logger provides structured logging functionality for the application.
//
// It configures a JSON log/slog handler from the server configuration,
// optionally duplicating output into a size-rotated file, and carries
// request- and run-scoped loggers through context.Context.
package logger
