package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecamozu/career-agent/internal/ai"
	"go.uber.org/zap"
)

// Evaluator wraps the scoring model and enforces its contract: the score must
// be within [1, 10], feedback must be present, and the approval flag is
// always derived from the threshold. The score is authoritative; the model's
// own is_approved flag never overrides it.
type Evaluator struct {
	critic ai.Critic
	logger *zap.Logger
}

func NewEvaluator(critic ai.Critic, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{critic: critic, logger: logger}
}

// Evaluate scores one candidate reply. Every failure is a ValidationError:
// the loop treats an unscorable turn as unapproved rather than crashing,
// since an extra revision is safer than silently accepting unscored output.
func (e *Evaluator) Evaluate(ctx context.Context, employerMessage, candidateReply string) (*ai.Evaluation, error) {
	evaluation, err := e.critic.Evaluate(ctx, employerMessage, candidateReply)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	if evaluation.Score < 1.0 || evaluation.Score > 10.0 {
		return nil, &ValidationError{Err: fmt.Errorf("score %.2f outside [1, 10]", evaluation.Score)}
	}

	if evaluation.Feedback == "" {
		return nil, &ValidationError{Err: errors.New("evaluation feedback is empty")}
	}

	approved := evaluation.Score >= ApprovalThreshold
	if evaluation.Approved != approved {
		e.logger.Warn("evaluator approval flag disagrees with score threshold, using threshold",
			zap.Float64("score", evaluation.Score),
			zap.Bool("asserted_approved", evaluation.Approved),
			zap.Bool("threshold_approved", approved),
		)
	}
	evaluation.Approved = approved

	e.logger.Info("evaluation",
		zap.Float64("score", evaluation.Score),
		zap.Bool("approved", evaluation.Approved),
		zap.Bool("professional_tone", evaluation.ProfessionalTone),
		zap.Bool("clarity", evaluation.Clarity),
		zap.Bool("completeness", evaluation.Completeness),
		zap.Bool("safety", evaluation.Safety),
		zap.Bool("relevance", evaluation.Relevance),
	)

	return evaluation, nil
}
