package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultSMTPPort = 587

// sendMail is swapped in tests.
var sendMail = smtp.SendMail

// EmailConfig holds SMTP transport settings. The password is resolved
// separately (file or environment) and passed to NewEmail.
type EmailConfig struct {
	From         string `mapstructure:"from"`
	To           string `mapstructure:"to"`
	SMTPHost     string `mapstructure:"smtp-host"`
	SMTPPort     int    `mapstructure:"smtp-port"`
	PasswordFile string `mapstructure:"password-file"`
}

// Email delivers notifications over SMTP. Safe for concurrent use: every send
// opens its own connection.
type Email struct {
	from     string
	to       string
	host     string
	port     int
	password string
	logger   *zap.Logger
	now      func() time.Time
}

func NewEmail(cfg *EmailConfig, password string, logger *zap.Logger) (*Email, error) {
	if cfg == nil {
		return nil, errors.New("email configuration is required")
	}
	if strings.TrimSpace(cfg.From) == "" || strings.TrimSpace(cfg.To) == "" {
		return nil, errors.New("email from and to addresses are required")
	}
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("smtp password is required")
	}

	port := cfg.SMTPPort
	if port <= 0 {
		port = defaultSMTPPort
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Email{
		from:     strings.TrimSpace(cfg.From),
		to:       strings.TrimSpace(cfg.To),
		host:     strings.TrimSpace(cfg.SMTPHost),
		port:     port,
		password: password,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (e *Email) NewMessage(ctx context.Context, employerName, preview string) error {
	return e.send(ctx, newMessageNotification(employerName, preview))
}

func (e *Email) Approved(ctx context.Context, employerName, responseText string, score float64) error {
	return e.send(ctx, approvedNotification(employerName, responseText, score))
}

func (e *Email) Flagged(ctx context.Context, question, reason string, confidence float64) error {
	return e.send(ctx, flaggedNotification(question, reason, confidence))
}

func (e *Email) send(ctx context.Context, m message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload := e.render(m)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.from, e.password, e.host)

	if err := sendMail(addr, auth, e.from, []string{e.to}, payload); err != nil {
		return fmt.Errorf("send email %q: %w", m.subject, err)
	}

	e.logger.Info("email sent", zap.String("subject", m.subject))
	return nil
}

func (e *Email) render(m message) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", e.to)
	fmt.Fprintf(&b, "Subject: [Career Agent] %s\r\n", m.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "Career Agent Notification\nTime: %s\n\n%s\n\n"+
		"This is an automated notification from your career agent.\n",
		e.now().Format("2006-01-02 15:04:05"), m.body)

	return []byte(b.String())
}
