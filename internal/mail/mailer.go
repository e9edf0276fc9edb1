package mail

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/factuurlab/factuur/internal/logger"
)

// Mailer delivers one message. Implementations must be safe for concurrent
// use; the jobs and the OTP service share a single instance.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SendgridMailer is the production Mailer.
type SendgridMailer struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendgridMailer(apiKey, from, fromName string) *SendgridMailer {
	return &SendgridMailer{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (m *SendgridMailer) Send(to, subject, htmlBody string) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		subject,
		sgmail.NewEmail("", to),
		"",
		htmlBody,
	)
	resp, err := m.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer logs instead of sending. Used in development and as the fallback
// when no API key is configured.
type LogMailer struct{}

func (LogMailer) Send(to, subject, htmlBody string) error {
	l := logger.WithComponent("mail")
	l.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("mail suppressed (no mailer configured)")
	return nil
}
