package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/phrazzld/duewatch/internal/domain"
	"github.com/phrazzld/duewatch/internal/domain/policy"
)

var htmlBody = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #212529;">
  <div style="border-left: 6px solid {{.Urgency.Color}}; padding: 12px 16px;">
    <h2 style="color: {{.Urgency.Color}}; margin-top: 0;">{{.Urgency.Label}}</h2>
    <p>Hello {{.Alert.ToName}},</p>
    <p>The task <strong>{{.Alert.TaskTitle}}</strong> needs your attention.</p>
    <table cellpadding="4">
      {{- if .Alert.DeadlineText}}
      <tr><td>Deadline:</td><td><strong>{{.Alert.DeadlineText}}</strong></td></tr>
      {{- end}}
      <tr><td>Status:</td><td style="color: {{.Urgency.Color}};"><strong>{{.Urgency.Message}}</strong></td></tr>
    </table>
    {{- if .Link}}
    <p><a href="{{.Link}}">Open your tasks</a></p>
    {{- end}}
  </div>
  <p style="font-size: 12px; color: #6c757d;">You receive this message because deadline alerts are enabled for your account.</p>
</body>
</html>
`))

type bodyData struct {
	Alert   domain.Alert
	Urgency policy.Urgency
	Link    string
}

// Subject returns the subject line for alert.
func Subject(alert domain.Alert) string {
	return fmt.Sprintf("[%s] Alert: %s", policy.Describe(alert.DaysRemaining).Label, alert.TaskTitle)
}

// TasksLink returns the task list URL under appURL, or "" when appURL is
// empty.
func TasksLink(appURL string) string {
	if appURL == "" {
		return ""
	}
	return strings.TrimRight(appURL, "/") + "/tasks"
}

func textBody(data bodyData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", data.Alert.ToName)
	fmt.Fprintf(&b, "%s: the task %q needs your attention.\n\n", data.Urgency.Label, data.Alert.TaskTitle)
	if data.Alert.DeadlineText != "" {
		fmt.Fprintf(&b, "Deadline: %s\n", data.Alert.DeadlineText)
	}
	fmt.Fprintf(&b, "Status: %s\n", data.Urgency.Message)
	if data.Link != "" {
		fmt.Fprintf(&b, "\nOpen your tasks: %s\n", data.Link)
	}
	return b.String()
}

// Composer renders alerts into RFC 5322 messages.
type Composer struct {
	From   mail.Address
	AppURL string
	now    func() time.Time
}

// NewComposer creates a Composer for the given sender.
func NewComposer(fromAddress, fromName, appURL string) *Composer {
	return &Composer{
		From:   mail.Address{Name: fromName, Address: fromAddress},
		AppURL: appURL,
		now:    time.Now,
	}
}

// Compose renders alert as a multipart/alternative message with a plain
// text part and an HTML part.
func (c *Composer) Compose(alert domain.Alert) ([]byte, error) {
	data := bodyData{
		Alert:   alert,
		Urgency: policy.Describe(alert.DaysRemaining),
		Link:    TasksLink(c.AppURL),
	}

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render alert body: %w", err)
	}

	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{&c.From})
	h.SetAddressList("To", []*mail.Address{{Name: alert.ToName, Address: alert.ToEmail}})
	h.SetSubject(Subject(alert))
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	iw, err := w.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create message body: %w", err)
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", textBody(data)},
		{"text/html", html.String()},
	}
	for _, p := range parts {
		if err := writePart(iw, p.contentType, p.body); err != nil {
			return nil, err
		}
	}

	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		_ = pw.Close()
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return pw.Close()
}
