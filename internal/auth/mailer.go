package auth

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPConfig holds the mail transport credentials.
type SMTPConfig struct {
	Server   string // host:port
	User     string
	Password string
	From     string
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender checks cfg and returns a sender for it.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Server == "" || cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SMTP server, user and password must be set")
	}
	if _, _, err := net.SplitHostPort(cfg.Server); err != nil {
		return nil, fmt.Errorf("invalid SMTP server %q (expected host:port): %w", cfg.Server, err)
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}, nil
}

// Send delivers the message. The context is only checked before dialing; net/smtp has no cancellation.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient")
	}
	host, _, _ := net.SplitHostPort(s.cfg.Server)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, host)

	if err := s.sendMail(s.cfg.Server, auth, s.cfg.User, []string{to}, buildMessage(s.cfg.From, to, subject, html)); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", s.cfg.Server, err)
	}
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	return []byte(b.String())
}
