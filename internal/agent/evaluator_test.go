package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/ecamozu/career-agent/internal/ai"
	"go.uber.org/zap"
)

func TestEvaluateThresholdOverridesAssertedApproval(t *testing.T) {
	cases := []struct {
		name     string
		score    float64
		asserted bool
		want     bool
	}{
		{"high score approved despite asserted false", 8.0, false, true},
		{"low score rejected despite asserted true", 6.5, true, false},
		{"threshold boundary is approved", 7.0, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			critic := &stubCritic{evaluations: []*ai.Evaluation{{
				Score:    tc.score,
				Feedback: "feedback",
				Approved: tc.asserted,
			}}}
			e := NewEvaluator(critic, zap.NewNop())

			evaluation, err := e.Evaluate(context.Background(), "message", "reply")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if evaluation.Approved != tc.want {
				t.Fatalf("score %.1f: expected approved=%v, got %v", tc.score, tc.want, evaluation.Approved)
			}
		})
	}
}

func TestEvaluateRejectsOutOfRangeScore(t *testing.T) {
	for _, score := range []float64{0.5, 10.5, -1} {
		critic := &stubCritic{evaluations: []*ai.Evaluation{{Score: score, Feedback: "feedback"}}}
		e := NewEvaluator(critic, zap.NewNop())

		_, err := e.Evaluate(context.Background(), "message", "reply")
		if err == nil {
			t.Fatalf("expected error for score %v", score)
		}
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected ValidationError for score %v, got %T", score, err)
		}
	}
}

func TestEvaluateRejectsEmptyFeedback(t *testing.T) {
	critic := &stubCritic{evaluations: []*ai.Evaluation{{Score: 5.0, Feedback: ""}}}
	e := NewEvaluator(critic, zap.NewNop())

	_, err := e.Evaluate(context.Background(), "message", "reply")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEvaluateWrapsCriticFailure(t *testing.T) {
	critic := &stubCritic{errs: []error{errors.New("timeout")}, evaluations: []*ai.Evaluation{nil}}
	e := NewEvaluator(critic, zap.NewNop())

	_, err := e.Evaluate(context.Background(), "message", "reply")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
