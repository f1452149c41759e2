// Package email delivers composed briefings over SMTP: the markdown body
// is rendered to a plaintext/HTML pair and sent as a multipart message.
// Delivery runs independently of briefing composition and is retried on
// its own schedule: a relay failure is transient and never invalidates
// the briefing itself.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/sony/gobreaker"

	"newsbot/internal/observability/metrics"
	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

// htmlTemplate wraps the markdown body as preformatted text. Briefings are
// already structured markdown; a full markdown renderer is unnecessary
// weight for an email body email clients render in a monospace-friendly
// way regardless.
var htmlTemplate = template.Must(template.New("briefing").Parse(`<!DOCTYPE html>
<html><body style="font-family: -apple-system, sans-serif; max-width: 680px; margin: 0 auto;">
<pre style="white-space: pre-wrap; font-family: inherit;">{{.}}</pre>
</body></html>`))

// Config holds SMTP connection and sender details.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Sender delivers rendered briefings over SMTP, wrapped in the same
// circuit-breaker/retry pattern as the outbound AI calls.
type Sender struct {
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *slog.Logger
}

// NewSender builds a Sender.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		cfg:     cfg,
		breaker: circuitbreaker.New(circuitbreaker.EmailDeliveryConfig()),
		retry:   retry.EmailDeliveryConfig(),
		logger:  logger,
	}
}

// Send delivers a briefing's markdown body to a single recipient as a
// multipart/alternative message.
func (s *Sender) Send(ctx context.Context, to, subject, markdown string) error {
	message, err := s.buildMessage(to, subject, markdown)
	if err != nil {
		return fmt.Errorf("building message: %w", err)
	}

	retryErr := retry.WithBackoff(ctx, s.retry, func() error {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.deliver(to, message)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("smtp relay unavailable: circuit breaker open")
			}
			return err
		}
		return nil
	})
	if retryErr != nil {
		return fmt.Errorf("sending email after retries: %w", retryErr)
	}

	metrics.BriefingsSentTotal.WithLabelValues("email").Inc()
	return nil
}

func (s *Sender) deliver(to string, message []byte) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, message)
}

func (s *Sender) buildMessage(to, subject, markdown string) ([]byte, error) {
	var htmlBody bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBody, markdown); err != nil {
		return nil, fmt.Errorf("rendering html body: %w", err)
	}

	const boundary = "newsbot-briefing-boundary"
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(markdown)
	buf.WriteString("\r\n\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.Write(htmlBody.Bytes())
	buf.WriteString("\r\n\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes(), nil
}

// Subject renders a briefing's email subject line for date d.
func Subject(d time.Time) string {
	return "Daily Intelligence Briefing — " + d.UTC().Format("January 2, 2006")
}
