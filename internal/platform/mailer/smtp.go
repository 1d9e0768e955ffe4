package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/platform/logger"
	"github.com/phrazzld/duewatch/internal/redact"
)

// ErrNoRecipient is returned for an alert without an email address.
var ErrNoRecipient = errors.New("alert has no recipient address")

// SMTPNotifier sends alerts through an SMTP relay. Each alert uses its own
// connection, bounded by the configured timeout.
type SMTPNotifier struct {
	cfg       config.MailConfig
	composer  *Composer
	tlsConfig *tls.Config
	logger    *slog.Logger
}

// NewSMTPNotifier creates an SMTPNotifier from cfg.
func NewSMTPNotifier(cfg config.MailConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:       cfg,
		composer:  NewComposer(cfg.FromAddress, cfg.FromName, cfg.AppURL),
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		logger:    logger.With(slog.String("component", "mailer")),
	}
}

// SendAlert composes and delivers alert.
func (n *SMTPNotifier) SendAlert(ctx context.Context, alert domain.Alert) error {
	if alert.ToEmail == "" {
		return ErrNoRecipient
	}

	msg, err := n.composer.Compose(alert)
	if err != nil {
		return err
	}

	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	if err := n.deliver(ctx, alert.ToEmail, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %s", redact.String(err.Error()))
	}

	logger.FromContextOrDefault(ctx, n.logger).Debug("alert email delivered",
		slog.String("level", string(alert.Level)))
	return nil
}

func (n *SMTPNotifier) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(n.tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(n.cfg.FromAddress); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end of data: %w", err)
	}
	return c.Quit()
}
