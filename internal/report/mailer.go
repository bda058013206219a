package report

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"sentinel/internal/config"
)

// SMTPMailer sends summaries over authenticated SMTP. Gmail app passwords
// work with the default host and port 587.
type SMTPMailer struct {
	cfg config.Email
}

func NewSMTPMailer(cfg config.Email) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send summary mail: %w", err)
	}
	return nil
}
