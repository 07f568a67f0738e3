package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SMTPConfig holds relay credentials. Host and Port are required for the
// provider to count as configured; auth is optional for open relays.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Pass        string
	Secure      bool // implicit TLS when true, STARTTLS when offered otherwise
	FromAddr    string
	FromName    string
	DialTimeout time.Duration
}

// SMTPProvider sends email through a configured SMTP relay. Any failure
// is returned to the chain for fallback; there is no retry here.
type SMTPProvider struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTPProvider(cfg SMTPConfig, logger *zap.Logger) *SMTPProvider {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	return &SMTPProvider{cfg: cfg, logger: logger}
}

func (p *SMTPProvider) Name() string { return "smtp" }

func (p *SMTPProvider) Configured() bool {
	return p.cfg.Host != "" && p.cfg.Port != 0
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if !p.Configured() {
		return ErrNotConfigured
	}
	if msg.RecipientEmail == "" {
		return fmt.Errorf("message has no recipient email")
	}

	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))

	deadline := p.cfg.DialTimeout
	if d, ok := ctx.Deadline(); ok {
		if until := time.Until(d); until < deadline {
			deadline = until
		}
	}

	client, err := p.dial(addr, deadline)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer client.Quit()

	if !p.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: p.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if p.cfg.User != "" {
		auth := smtp.PlainAuth("", p.cfg.User, p.cfg.Pass, p.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(p.cfg.FromAddr); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.RecipientEmail); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(p.buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	p.logger.Info("email sent via smtp",
		zap.String("to", msg.RecipientEmail),
		zap.String("subject", msg.Subject),
	)

	return nil
}

// dial connects and puts a deadline on the whole SMTP conversation, not
// just the TCP handshake, so a stalled relay cannot wedge the sweep.
func (p *SMTPProvider) dial(addr string, timeout time.Duration) (*smtp.Client, error) {
	deadline := time.Now().Add(timeout)

	if p.cfg.Secure {
		// Implicit TLS, the port-465 style submission.
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: p.cfg.Host})
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return smtp.NewClient(conn, p.cfg.Host)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, err
	}
	return smtp.NewClient(conn, p.cfg.Host)
}

func (p *SMTPProvider) buildMessage(msg Message) []byte {
	body := msg.HTML
	contentType := "text/html; charset=\"utf-8\""
	if body == "" {
		body = msg.Text
		contentType = "text/plain; charset=\"utf-8\""
	}

	return []byte(
		fmt.Sprintf("From: %s <%s>\r\n", p.cfg.FromName, p.cfg.FromAddr) +
			fmt.Sprintf("To: %s\r\n", msg.RecipientEmail) +
			fmt.Sprintf("Subject: %s\r\n", msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			fmt.Sprintf("Content-Type: %s\r\n", contentType) +
			"\r\n" +
			body,
	)
}
