package agent

import (
	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/google/uuid"
)

const (
	// MaxRevisions bounds how many revise-and-retry cycles a session may take
	// before the last draft is accepted as-is.
	MaxRevisions = 3
	// ApprovalThreshold is the score cutoff above which a reply is accepted.
	ApprovalThreshold = 7.0
)

// Outcome classifies how a session terminated.
type Outcome string

const (
	OutcomePending           Outcome = "pending"
	OutcomeApproved          Outcome = "approved"
	OutcomeExhaustedAccepted Outcome = "exhausted_accepted"
)

// ActionKind enumerates the side-effecting actions the model may request.
type ActionKind string

const (
	ActionNotifyNewMessage ActionKind = "notify_new_employer_message"
	ActionNotifyApproved   ActionKind = "notify_response_approved"
	ActionFlagUnknown      ActionKind = "flag_unknown_question"
)

// FlagReason explains why a question was left unanswered.
type FlagReason string

const (
	ReasonSalaryNegotiation FlagReason = "salary_negotiation"
	ReasonLegalQuestion     FlagReason = "legal_question"
	ReasonOutsideExpertise  FlagReason = "outside_expertise"
	ReasonAmbiguousOffer    FlagReason = "ambiguous_offer"
	ReasonLowConfidence     FlagReason = "low_confidence"
)

// NewMessagePayload accompanies ActionNotifyNewMessage.
type NewMessagePayload struct {
	EmployerName   string `mapstructure:"employer_name" json:"employer_name"`
	MessagePreview string `mapstructure:"message_preview" json:"message_preview"`
}

// ApprovedPayload accompanies ActionNotifyApproved.
type ApprovedPayload struct {
	EmployerName string  `mapstructure:"employer_name" json:"employer_name"`
	ResponseText string  `mapstructure:"response_text" json:"response_text"`
	Score        float64 `mapstructure:"evaluation_score" json:"evaluation_score"`
}

// FlagPayload accompanies ActionFlagUnknown.
type FlagPayload struct {
	Question   string     `mapstructure:"question" json:"question"`
	Reason     FlagReason `mapstructure:"reason" json:"reason"`
	Confidence float64    `mapstructure:"confidence_score" json:"confidence_score"`
}

// ActionRequest is a tagged variant: Kind selects which payload is set.
// Requests are created when a draft is parsed and consumed exactly once by
// the extractor.
type ActionRequest struct {
	Kind       ActionKind
	NewMessage *NewMessagePayload
	Approved   *ApprovedPayload
	Flag       *FlagPayload
}

// Turn is one drafted candidate reply within a session.
type Turn struct {
	Reply   string
	Actions []ActionRequest
}

// Session is the processing of one employer message to a terminal outcome.
// It is owned exclusively by the loop; the other components return values the
// loop applies.
type Session struct {
	ID              string
	EmployerMessage string
	ProfileContext  string
	EmployerName    string

	History       []*Turn
	RevisionCount int
	LastFeedback  string
	Outcome       Outcome

	LastEvaluation *ai.Evaluation

	// HasUnknownFlag is sticky: once any turn flags a question, it stays set.
	HasUnknownFlag bool
	Flags          []FlagPayload

	// approvedNotified holds reply texts for which an approved notification
	// already went out, so the loop does not send a duplicate.
	approvedNotified map[string]bool
}

func newSession(employerMessage, profileContext string) *Session {
	return &Session{
		ID:               uuid.NewString(),
		EmployerMessage:  employerMessage,
		ProfileContext:   profileContext,
		Outcome:          OutcomePending,
		approvedNotified: make(map[string]bool),
	}
}

// Result is what the presentation layer receives for a completed session.
type Result struct {
	SessionID    string
	EmployerName string
	Reply        string
	Evaluation   *ai.Evaluation
	Outcome      Outcome
	Revisions    int
	Flagged      bool
	Flags        []FlagPayload
}
