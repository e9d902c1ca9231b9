package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPConfig captures the mail transport configuration. Credentials are
// injected here, never read from process-wide state by the notifier itself.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends plain-text mail over an authenticated SMTP connection.
type SMTPNotifier struct {
	cfg  SMTPConfig
	addr string
	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier validates the transport configuration and verifies the mail
// host is reachable before returning, so a broken mail setup surfaces at
// startup instead of on the first password reset.
func NewSMTPNotifier(ctx context.Context, cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial smtp host: %w", err)
	}
	_ = conn.Close()

	return &SMTPNotifier{cfg: cfg, addr: addr, send: smtp.SendMail}, nil
}

// Send delivers a single plain-text message. The caller's context bounds the
// delivery attempt.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: recipient is required", ErrDelivery)
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := buildMessage(n.cfg.From, to, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- n.send(n.addr, auth, n.cfg.From, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return nil
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
