package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/ecamozu/career-agent/internal/logger"
	"go.uber.org/zap"
)

//go:embed critic.md
var criticTemplate string

const criticSystemPrompt = "You are a strict but fair evaluator of professional correspondence."

// Critic scores candidate replies through Gemini.
type Critic struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewCritic(generator contentGenerator, log *zap.Logger, maxLogLength int) *Critic {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Critic{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (c *Critic) Evaluate(ctx context.Context, employerMessage, candidateReply string) (*ai.Evaluation, error) {
	if strings.TrimSpace(candidateReply) == "" {
		return nil, errors.New("candidate reply is required")
	}

	message := buildCriticPrompt(employerMessage, candidateReply)

	c.logger.Debug("gemini evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("reply_preview", logger.TruncateForLog(candidateReply, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, criticSystemPrompt, message)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, c.maxLogLen)),
	)

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		return nil, err
	}

	evaluation.Raw = raw
	return evaluation, nil
}

func buildCriticPrompt(employerMessage, candidateReply string) string {
	prompt := strings.ReplaceAll(criticTemplate, "{{EMPLOYER_MESSAGE}}", employerMessage)
	return strings.ReplaceAll(prompt, "{{CANDIDATE_REPLY}}", candidateReply)
}

func parseEvaluation(raw string) (*ai.Evaluation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini evaluation response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return nil, errors.New("gemini evaluation response has no usable score")
	}

	return &ai.Evaluation{
		Score:            score,
		ProfessionalTone: coerceBool(data["professional_tone"]),
		Clarity:          coerceBool(data["clarity"]),
		Completeness:     coerceBool(data["completeness"]),
		Safety:           coerceBool(data["safety"]),
		Relevance:        coerceBool(data["relevance"]),
		Feedback:         coerceString(data["feedback"]),
		Approved:         coerceBool(data["is_approved"]),
	}, nil
}
