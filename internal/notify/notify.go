// Package notify delivers user-facing notifications about agent activity.
// Delivery is best-effort: callers log failures and continue.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const previewLimit = 300

// Notifier is the transport boundary for agent notifications. Implementations
// must be safe for concurrent use.
type Notifier interface {
	NewMessage(ctx context.Context, employerName, preview string) error
	Approved(ctx context.Context, employerName, responseText string, score float64) error
	Flagged(ctx context.Context, question, reason string, confidence float64) error
}

type message struct {
	subject string
	body    string
}

func newMessageNotification(employerName, preview string) message {
	runes := []rune(preview)
	if len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}

	return message{
		subject: fmt.Sprintf("New message from %s", employerName),
		body: fmt.Sprintf("You received a new message from %s.\n\nPreview:\n%s",
			employerName, preview),
	}
}

func approvedNotification(employerName, responseText string, score float64) message {
	return message{
		subject: fmt.Sprintf("Response approved for %s (Score: %.1f/10)", employerName, score),
		body: fmt.Sprintf("Your response to %s has been approved by the evaluator.\n\n"+
			"Evaluation Score: %.1f/10\n\nResponse:\n%s",
			employerName, score, responseText),
	}
}

func flaggedNotification(question, reason string, confidence float64) message {
	return message{
		subject: fmt.Sprintf("Unknown Question - Human Intervention Needed (Confidence: %.0f%%)", confidence*100),
		body: fmt.Sprintf("The career agent encountered a question it cannot confidently answer.\n\n"+
			"Question: %s\n\nReason: %s\n\nConfidence Score: %.0f%%\n\n"+
			"Action Required: Please review and provide a manual response.",
			question, reason, confidence*100),
	}
}

// Console logs notifications instead of delivering them. It is the fallback
// when email credentials are not configured.
type Console struct {
	logger *zap.Logger
}

func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

func (c *Console) NewMessage(_ context.Context, employerName, preview string) error {
	c.log(newMessageNotification(employerName, preview))
	return nil
}

func (c *Console) Approved(_ context.Context, employerName, responseText string, score float64) error {
	c.log(approvedNotification(employerName, responseText, score))
	return nil
}

func (c *Console) Flagged(_ context.Context, question, reason string, confidence float64) error {
	c.log(flaggedNotification(question, reason, confidence))
	return nil
}

func (c *Console) log(m message) {
	c.logger.Info("notification",
		zap.String("subject", m.subject),
		zap.String("body", strings.TrimSpace(m.body)),
	)
}
