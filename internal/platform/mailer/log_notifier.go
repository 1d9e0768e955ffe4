package mailer

import (
	"context"
	"log/slog"

	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/redact"
)

// LogNotifier logs alerts instead of emailing them. It is used when mail
// is disabled. Every send reports domain.ErrDeliveryDisabled so nothing is
// recorded in the ledger and alerts go out once mail is enabled.
type LogNotifier struct {
	appURL string
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(appURL string, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{appURL: appURL, logger: logger.With(slog.String("component", "mailer"))}
}

// SendAlert logs the alert at info level and returns
// domain.ErrDeliveryDisabled.
func (n *LogNotifier) SendAlert(ctx context.Context, alert domain.Alert) error {
	logger.FromContextOrDefault(ctx, n.logger).Info("alert (mail disabled)",
		slog.String("to", redact.String(alert.ToEmail)),
		slog.String("subject", Subject(alert)),
		slog.String("deadline", alert.DeadlineText),
		slog.String("link", TasksLink(n.appURL)))
	return domain.ErrDeliveryDisabled
}
