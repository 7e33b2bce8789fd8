package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/pkg/config"
)

// EmailSender delivers confirmation emails over SMTP. Template rendering is
// intentionally minimal; the template id and merge data travel in the job so
// a richer renderer can slot in behind the same payload.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func NewEmailSender(cfg config.SMTPConfig, logger zerolog.Logger) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *EmailSender) Deliver(ctx context.Context, job domain.NotificationJob) error {
	var payload domain.EmailJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email payload: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", payload.To)
	m.SetHeader("Subject", subjectFor(payload.Template))
	m.SetBody("text/plain", renderBody(payload))

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("email send timed out: %w", ctx.Err())
	}

	s.logger.Info().
		Str("session_id", job.SessionID).
		Str("to", payload.To).
		Str("template", payload.Template).
		Msg("Email delivered")
	return nil
}

func subjectFor(template string) string {
	switch template {
	case domain.EmailTemplatePaymentConfirmation:
		return "Your payment is confirmed"
	default:
		return "Payment update"
	}
}

func renderBody(payload domain.EmailJobPayload) string {
	return fmt.Sprintf(
		"Your payment of %s %s for plan %s has been confirmed.\n\nReference: %s\n",
		payload.MergeData["amount"],
		payload.MergeData["currency"],
		payload.MergeData["plan"],
		payload.MergeData["session_id"],
	)
}
