package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"notemesh/internal/core/ports"

	"go.uber.org/zap"
)

// SMTPMailer sends notification mail over plain SMTP. The standard library
// client is synchronous; callers that must not block wrap Send in their own
// goroutine.
type SMTPMailer struct {
	address  string
	username string
	password string
	from     string
	logger   *zap.SugaredLogger
}

func NewSMTPMailer(address, username, password, from string, logger *zap.SugaredLogger) ports.Mailer {
	return &SMTPMailer{
		address:  address,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.username != "" {
		host := m.address
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}

	if err := smtp.SendMail(m.address, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	m.logger.Infow("mail sent", "to", to, "subject", subject)
	return nil
}

// NoopMailer logs instead of sending. Used when mail is disabled.
type NoopMailer struct {
	logger *zap.SugaredLogger
}

func NewNoopMailer(logger *zap.SugaredLogger) ports.Mailer {
	return &NoopMailer{logger: logger}
}

func (m *NoopMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Infow("mail disabled, skipping send", "to", to, "subject", subject)
	return nil
}
