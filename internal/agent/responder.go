package agent

import (
	"context"
	"errors"

	"github.com/ecamozu/career-agent/internal/ai"
	"go.uber.org/zap"
)

// Responder drafts candidate replies and enforces the output contract: the
// reply text must be non-empty and self-contained. The underlying model
// cannot be trusted to follow its format instructions, so the responder
// repairs drafts that buried the reply inside an approved-notification
// payload instead.
type Responder struct {
	drafter       ai.Drafter
	candidateName string
	logger        *zap.Logger
}

func NewResponder(drafter ai.Drafter, candidateName string, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{drafter: drafter, candidateName: candidateName, logger: logger}
}

// Respond produces the next turn for the session. Any failure here is a
// GenerationError: without a usable draft the session cannot continue.
func (r *Responder) Respond(ctx context.Context, session *Session) (*Turn, error) {
	draft, err := r.drafter.Draft(ctx, &ai.DraftRequest{
		CandidateName:   r.candidateName,
		ProfileContext:  session.ProfileContext,
		EmployerMessage: session.EmployerMessage,
		PriorFeedback:   session.LastFeedback,
		RevisionAttempt: session.RevisionCount,
		MaxRevisions:    MaxRevisions,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	turn := &Turn{Reply: draft.Reply}
	for _, action := range draft.Actions {
		request, err := parseAction(action)
		if err != nil {
			r.logger.Warn("skipping unparseable action",
				zap.String("session_id", session.ID),
				zap.String("action", action.Name),
				zap.Error(err),
			)
			continue
		}
		turn.Actions = append(turn.Actions, *request)
	}

	if turn.Reply == "" {
		turn.Reply = replyFromActions(turn.Actions)
		if turn.Reply != "" {
			r.logger.Warn("draft reply recovered from action payload",
				zap.String("session_id", session.ID),
			)
		}
	}

	if turn.Reply == "" {
		return nil, &GenerationError{Err: errors.New("draft contains no reply text")}
	}

	return turn, nil
}

// replyFromActions recovers the reply text from an approved-notification
// payload, the one action kind that carries the full response.
func replyFromActions(actions []ActionRequest) string {
	for _, action := range actions {
		if action.Kind == ActionNotifyApproved && action.Approved.ResponseText != "" {
			return action.Approved.ResponseText
		}
	}
	return ""
}
