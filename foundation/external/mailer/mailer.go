// Package mailer delivers one-time codes and order confirmations over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// ErrNotConfigured is returned when no SMTP credentials were provided.
// Callers treat it as degraded mode, not as a failure.
var ErrNotConfigured = errors.New("smtp authentication not configured")

const dialTimeout = 30 * time.Second

type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From overrides the sender address. Defaults to Username.
	From string

	// StartTLS upgrades a plain connection. When false the connection is
	// implicit TLS from the start (port 465).
	StartTLS bool
}

// Configured reports whether authenticated delivery is possible.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

func (c Config) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

type Mailer struct {
	cfg Config
}

func New(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Configured() bool {
	return m.cfg.Configured()
}

// Send composes a message with a markdown body and delivers it to to.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}

	msg, err := ComposeMessage(ComposeOptions{
		From:    m.cfg.sender(),
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return err
	}

	return sendMail(ctx, m.cfg, extractAddress(m.cfg.sender()), []string{extractAddress(to)}, msg)
}

func sendMail(ctx context.Context, cfg Config, from string, recipients []string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if cfg.StartTLS {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: cfg.Host})
	}
	if err != nil {
		return fmt.Errorf("dial SMTP %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create SMTP client on %s: %w", addr, err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("EHLO: %w", err)
	}

	if cfg.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	}

	if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return fmt.Errorf("AUTH: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close DATA: %w", err)
	}

	return client.Quit()
}

// extractAddress returns the bare address of "Name <addr>" or addr.
func extractAddress(s string) string {
	if idx := len(s) - 1; idx > 0 && s[idx] == '>' {
		for i := idx; i >= 0; i-- {
			if s[i] == '<' {
				return s[i+1 : idx]
			}
		}
	}
	return s
}
