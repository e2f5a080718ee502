package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/ecamozu/career-agent/internal/logger"
	"go.uber.org/zap"
)

//go:embed drafter.md
var drafterTemplate string

const defaultMaxLogLength = 200

// contentGenerator is the part of Generator the drafter and critic use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Drafter produces candidate replies to employer messages through Gemini.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

func NewDrafter(generator contentGenerator, log *zap.Logger, maxLogLength int) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Drafter{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

func (d *Drafter) Draft(ctx context.Context, req *ai.DraftRequest) (*ai.Draft, error) {
	if req == nil {
		return nil, errors.New("draft request is required")
	}
	if strings.TrimSpace(req.EmployerMessage) == "" {
		return nil, errors.New("employer message is required")
	}

	system := buildDrafterPrompt(req, d.now().Format("2006-01-02"))

	d.logger.Debug("gemini draft request",
		zap.Int("revision_attempt", req.RevisionAttempt),
		zap.Int("prompt_length", utf8.RuneCountInString(system)),
		zap.String("message_preview", logger.TruncateForLog(req.EmployerMessage, d.maxLogLen)),
	)

	raw, err := d.generator.GenerateContent(ctx, system, req.EmployerMessage)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("gemini draft response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, d.maxLogLen)),
	)

	draft, err := parseDraft(raw)
	if err != nil {
		return nil, err
	}

	draft.Raw = raw
	return draft, nil
}

func buildDrafterPrompt(req *ai.DraftRequest, date string) string {
	prompt := strings.ReplaceAll(drafterTemplate, "{{NAME}}", req.CandidateName)
	prompt = strings.ReplaceAll(prompt, "{{DATE}}", date)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE}}", req.ProfileContext)

	revision := ""
	if req.PriorFeedback != "" && req.RevisionAttempt > 0 {
		revision = fmt.Sprintf(`
## REVISION REQUIRED
Your previous reply was evaluated and did NOT meet the quality threshold.
Evaluator feedback: %s
Please revise your reply addressing this feedback.
This is revision attempt %d of %d.`,
			req.PriorFeedback, req.RevisionAttempt, req.MaxRevisions)
	}

	return strings.ReplaceAll(prompt, "{{REVISION_BLOCK}}", revision)
}

func parseDraft(raw string) (*ai.Draft, error) {
	cleaned := extractJSON(raw)

	var payload struct {
		Reply   string `json:"reply"`
		Actions []struct {
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
		} `json:"actions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse gemini draft response: %w", err)
	}

	draft := &ai.Draft{Reply: strings.TrimSpace(payload.Reply)}
	for _, action := range payload.Actions {
		name := strings.TrimSpace(action.Name)
		if name == "" {
			continue
		}
		draft.Actions = append(draft.Actions, ai.Action{Name: name, Args: action.Args})
	}

	return draft, nil
}
