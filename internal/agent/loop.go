package agent

import (
	"context"
	"errors"

	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/ecamozu/career-agent/internal/notify"
	"github.com/ecamozu/career-agent/internal/profile"
	"go.uber.org/zap"
)

// fallbackFeedback drives a revision when the evaluation itself could not be
// used and no earlier feedback exists.
const fallbackFeedback = "The previous reply could not be evaluated. Revise it for clarity, completeness, and accuracy against the profile."

type responder interface {
	Respond(ctx context.Context, session *Session) (*Turn, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, employerMessage, candidateReply string) (*ai.Evaluation, error)
}

// Agent drives one employer message through draft, action extraction, and
// evaluation until the reply is approved or the revision budget runs out.
// It is the only stateful participant; sessions are independent, so a single
// Agent may serve concurrent Process calls.
type Agent struct {
	responder responder
	evaluator evaluator
	extractor *Extractor
	notifier  notify.Notifier
	profile   *profile.Profile
	logger    *zap.Logger
}

func New(drafter ai.Drafter, critic ai.Critic, notifier notify.Notifier, prof *profile.Profile, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		responder: NewResponder(drafter, prof.Name, logger),
		evaluator: NewEvaluator(critic, logger),
		extractor: NewExtractor(notifier, logger),
		notifier:  notifier,
		profile:   prof,
		logger:    logger,
	}
}

// Process runs one full session to a terminal state. The returned result
// always carries a non-empty reply; when the revision budget is exhausted the
// last draft is returned as-is with the exhausted outcome rather than an
// error, since the best available attempt beats no reply at all.
func (a *Agent) Process(ctx context.Context, employerMessage string) (*Result, error) {
	session := newSession(employerMessage, a.profile.Context())
	logger := a.logger.With(zap.String("session_id", session.ID))

	logger.Info("session started",
		zap.Int("message_chars", len(employerMessage)),
	)

	var turn *Turn
	for {
		var err error
		turn, err = a.responder.Respond(ctx, session)
		if err != nil {
			logger.Error("drafting failed, aborting session", zap.Error(err))
			return nil, err
		}

		// Actions run before evaluation and are never skipped: flagged
		// questions must be reported even for a turn that ends up rejected.
		a.extractor.Extract(ctx, session, turn)
		session.History = append(session.History, turn)

		evaluation, err := a.evaluator.Evaluate(ctx, session.EmployerMessage, turn.Reply)
		if err != nil {
			var validation *ValidationError
			if !errors.As(err, &validation) {
				return nil, err
			}
			logger.Warn("treating unusable evaluation as not approved", zap.Error(err))
			evaluation = nil
		}

		if evaluation != nil {
			session.LastEvaluation = evaluation
		}

		if evaluation != nil && evaluation.Approved {
			session.Outcome = OutcomeApproved
			a.notifyApproved(ctx, session, turn, evaluation)
			break
		}

		if session.RevisionCount < MaxRevisions {
			session.RevisionCount++
			session.LastFeedback = revisionFeedback(evaluation, session.LastFeedback)
			logger.Info("revising",
				zap.Int("revision", session.RevisionCount),
				zap.Int("max_revisions", MaxRevisions),
			)
			continue
		}

		logger.Warn("revision budget exhausted, accepting last draft",
			zap.Int("revisions", session.RevisionCount),
		)
		session.Outcome = OutcomeExhaustedAccepted
		break
	}

	logger.Info("session finished",
		zap.String("outcome", string(session.Outcome)),
		zap.Int("revisions", session.RevisionCount),
		zap.Bool("flagged", session.HasUnknownFlag),
	)

	return &Result{
		SessionID:    session.ID,
		EmployerName: session.EmployerName,
		Reply:        turn.Reply,
		Evaluation:   session.LastEvaluation,
		Outcome:      session.Outcome,
		Revisions:    session.RevisionCount,
		Flagged:      session.HasUnknownFlag,
		Flags:        session.Flags,
	}, nil
}

// notifyApproved sends the approved notification for the final reply unless
// the turn's own actions already delivered one for this exact text.
func (a *Agent) notifyApproved(ctx context.Context, session *Session, turn *Turn, evaluation *ai.Evaluation) {
	if session.approvedNotified[turn.Reply] {
		return
	}

	employer := session.EmployerName
	if employer == "" {
		employer = "the employer"
	}

	if err := a.notifier.Approved(ctx, employer, turn.Reply, evaluation.Score); err != nil {
		notifErr := &NotificationError{Err: err}
		a.logger.Warn("approved notification failed",
			zap.String("session_id", session.ID),
			zap.Error(notifErr),
		)
		return
	}

	session.approvedNotified[turn.Reply] = true
}

func revisionFeedback(evaluation *ai.Evaluation, previous string) string {
	if evaluation != nil && evaluation.Feedback != "" {
		return evaluation.Feedback
	}
	if previous != "" {
		return previous
	}
	return fallbackFeedback
}
