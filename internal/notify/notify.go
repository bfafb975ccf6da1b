// Package notify sends HTML email notifications with attachments over SMTP.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// Defaults used when no SMTP settings are configured.
const (
	DefaultServer = "smtp.gmail.com"
	DefaultPort   = 587
	// MockSender is the placeholder address that switches a sender to mock
	// mode.
	MockSender = "test@example.com"
)

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Config holds SMTP account settings.
type Config struct {
	Server   string
	Port     int
	Email    string
	Password string
}

// Mock reports whether the account is a placeholder; messages are then
// logged instead of sent.
func (c Config) Mock() bool {
	return c.Email == MockSender || c.Password == ""
}

// SMTP sends messages through an SMTP server with STARTTLS.
type SMTP struct {
	cfg     Config
	logger  *log.Logger
	timeout time.Duration
	tls     *tls.Config
	now     func() time.Time
}

var _ Sender = (*SMTP)(nil)

// Option configures an SMTP sender.
type Option func(*SMTP)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *SMTP) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeout bounds dialing and the whole conversation.
func WithTimeout(d time.Duration) Option {
	return func(s *SMTP) { s.timeout = d }
}

// WithTLSConfig replaces the STARTTLS configuration.
func WithTLSConfig(c *tls.Config) Option {
	return func(s *SMTP) { s.tls = c }
}

// NewSMTP returns a sender for cfg. Empty server and port get defaults.
func NewSMTP(cfg Config, opts ...Option) *SMTP {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	s := &SMTP{
		cfg:     cfg,
		logger:  log.Default(),
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tls == nil {
		s.tls = &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}
	}
	return s
}

// Mock reports whether messages are only logged.
func (s *SMTP) Mock() bool { return s.cfg.Mock() }

// Send delivers m, or logs it in mock mode.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	var buf bytes.Buffer
	if err := Encode(&buf, s.cfg.Email, m, s.now()); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if s.Mock() {
		s.logger.Info("mock email", "to", m.To, "subject", m.Subject,
			"attachments", len(m.Attachments), "bytes", buf.Len())
		return nil
	}
	if err := s.deliver(ctx, m.To, buf.Bytes()); err != nil {
		return fmt.Errorf("send to %v: %w", m.To, err)
	}
	s.logger.Info("email sent", "to", m.To, "subject", m.Subject)
	return nil
}

func (s *SMTP) deliver(ctx context.Context, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Server, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.cfg.Server)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(s.tls); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.cfg.Email, s.cfg.Password, s.cfg.Server)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.Email); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
