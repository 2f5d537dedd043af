// Package mailer sends transactional email through SendGrid. Without an API
// key the mailer is a logging noop, so local development works end to end
// with no external account.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends email via the SendGrid API.
type Mailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
	logger   *slog.Logger
}

// New creates a Mailer. An empty apiKey returns a disabled mailer that logs
// instead of sending.
func New(apiKey, from, fromName string, logger *slog.Logger) *Mailer {
	m := &Mailer{from: from, fromName: fromName, logger: logger}
	if apiKey != "" {
		m.client = sendgrid.NewSendClient(apiKey)
	}
	return m
}

// IsEnabled reports whether outbound mail is configured.
func (m *Mailer) IsEnabled() bool {
	return m.client != nil
}

// Send delivers an HTML email to each of the given recipients.
func (m *Mailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if !m.IsEnabled() {
		m.logger.Info("mailer disabled, skipping email", "subject", subject, "recipients", len(to))
		return nil
	}

	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(m.fromName, m.from))
	msg.Subject = subject
	msg.AddContent(mail.NewContent("text/html", htmlBody))

	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	msg.AddPersonalizations(p)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// SendPasswordReset sends a password reset link to a single user.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<p>A password reset was requested for your account.</p>
<p><a href="%s">Reset your password</a></p>
<p>The link expires in one hour. If you did not request a reset, ignore this email.</p>`, link)

	return m.Send(ctx, []string{to}, "Reset your password", body)
}
