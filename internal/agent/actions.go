package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/ecamozu/career-agent/internal/notify"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// ExecutedAction records one action the extractor ran, with the transport
// error if delivery failed.
type ExecutedAction struct {
	Request ActionRequest
	Err     error
}

// Extractor executes the side-effecting actions a turn requested. Transport
// failures are logged and recorded but never abort the session: the flag
// itself is the safety mechanism and is kept in session state regardless.
type Extractor struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewExtractor(notifier notify.Notifier, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{notifier: notifier, logger: logger}
}

// Extract runs every requested action in order. Each action is executed
// independently; a failure does not short-circuit the rest.
func (e *Extractor) Extract(ctx context.Context, session *Session, turn *Turn) []ExecutedAction {
	executed := make([]ExecutedAction, 0, len(turn.Actions))

	for _, request := range turn.Actions {
		err := e.dispatch(ctx, session, request)
		if err != nil {
			err = &NotificationError{Err: err}
			e.logger.Warn("action notification failed",
				zap.String("session_id", session.ID),
				zap.String("action", string(request.Kind)),
				zap.Error(err),
			)
		} else {
			e.logger.Info("action executed",
				zap.String("session_id", session.ID),
				zap.String("action", string(request.Kind)),
			)
		}

		executed = append(executed, ExecutedAction{Request: request, Err: err})
	}

	return executed
}

func (e *Extractor) dispatch(ctx context.Context, session *Session, request ActionRequest) error {
	switch request.Kind {
	case ActionNotifyNewMessage:
		session.rememberEmployer(request.NewMessage.EmployerName)
		return e.notifier.NewMessage(ctx, request.NewMessage.EmployerName, request.NewMessage.MessagePreview)

	case ActionNotifyApproved:
		session.rememberEmployer(request.Approved.EmployerName)
		// Recorded before delivery: the loop must not send a duplicate for
		// this reply text even if this send fails.
		session.approvedNotified[request.Approved.ResponseText] = true
		return e.notifier.Approved(ctx, request.Approved.EmployerName, request.Approved.ResponseText, request.Approved.Score)

	case ActionFlagUnknown:
		session.HasUnknownFlag = true
		session.Flags = append(session.Flags, *request.Flag)
		return e.notifier.Flagged(ctx, request.Flag.Question, string(request.Flag.Reason), request.Flag.Confidence)

	default:
		return fmt.Errorf("no handler for action kind %q", request.Kind)
	}
}

func (s *Session) rememberEmployer(name string) {
	if name = strings.TrimSpace(name); name != "" && s.EmployerName == "" {
		s.EmployerName = name
	}
}

// parseAction decodes one loosely typed model action into a typed request.
// Unknown action names are an error; the caller decides whether to skip them.
func parseAction(action ai.Action) (*ActionRequest, error) {
	switch ActionKind(action.Name) {
	case ActionNotifyNewMessage:
		var payload NewMessagePayload
		if err := decodeArgs(action.Args, &payload); err != nil {
			return nil, err
		}
		return &ActionRequest{Kind: ActionNotifyNewMessage, NewMessage: &payload}, nil

	case ActionNotifyApproved:
		var payload ApprovedPayload
		if err := decodeArgs(action.Args, &payload); err != nil {
			return nil, err
		}
		return &ActionRequest{Kind: ActionNotifyApproved, Approved: &payload}, nil

	case ActionFlagUnknown:
		var payload FlagPayload
		if err := decodeArgs(action.Args, &payload); err != nil {
			return nil, err
		}
		payload.Reason = normalizeReason(payload.Reason)
		payload.Confidence = clampConfidence(payload.Confidence)
		return &ActionRequest{Kind: ActionFlagUnknown, Flag: &payload}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", action.Name)
	}
}

func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("decode action arguments: %w", err)
	}

	return nil
}

// normalizeReason coerces off-vocabulary reason strings to low_confidence
// instead of dropping the flag: the flag is the safety signal, the label is
// secondary.
func normalizeReason(reason FlagReason) FlagReason {
	switch FlagReason(strings.ToLower(strings.TrimSpace(string(reason)))) {
	case ReasonSalaryNegotiation:
		return ReasonSalaryNegotiation
	case ReasonLegalQuestion:
		return ReasonLegalQuestion
	case ReasonOutsideExpertise:
		return ReasonOutsideExpertise
	case ReasonAmbiguousOffer:
		return ReasonAmbiguousOffer
	default:
		return ReasonLowConfidence
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
