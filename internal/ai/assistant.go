package ai

import "context"

// Draft is one candidate reply produced by the underlying model, together
// with any side-effecting actions it requested.
type Draft struct {
	Reply   string
	Actions []Action
	Raw     string
}

// Action is a model-requested action before argument decoding. Args carry the
// loosely typed JSON arguments exactly as the model produced them.
type Action struct {
	Name string
	Args map[string]any
}

// DraftRequest carries everything the drafting prompt is built from.
type DraftRequest struct {
	CandidateName   string
	ProfileContext  string
	EmployerMessage string
	// PriorFeedback is the evaluator feedback from the previous attempt,
	// empty on the first draft.
	PriorFeedback   string
	RevisionAttempt int
	MaxRevisions    int
}

// Evaluation is the model's quality verdict for one candidate reply.
type Evaluation struct {
	Score            float64
	ProfessionalTone bool
	Clarity          bool
	Completeness     bool
	Safety           bool
	Relevance        bool
	Feedback         string
	Approved         bool
	Raw              string
}

// Drafter produces candidate replies to employer messages.
type Drafter interface {
	Draft(ctx context.Context, req *DraftRequest) (*Draft, error)
}

// Critic scores a candidate reply against the employer message.
type Critic interface {
	Evaluate(ctx context.Context, employerMessage, candidateReply string) (*Evaluation, error)
}
