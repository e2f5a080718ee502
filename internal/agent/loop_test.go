package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ecamozu/career-agent/internal/ai"
	"github.com/ecamozu/career-agent/internal/profile"
	"go.uber.org/zap"
)

type stubDrafter struct {
	mu       sync.Mutex
	drafts   []*ai.Draft
	errs     []error
	requests []*ai.DraftRequest
}

func (s *stubDrafter) Draft(_ context.Context, req *ai.DraftRequest) (*ai.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1

	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx >= len(s.drafts) {
		idx = len(s.drafts) - 1
	}
	return s.drafts[idx], nil
}

type stubCritic struct {
	mu          sync.Mutex
	evaluations []*ai.Evaluation
	errs        []error
	calls       int
}

func (s *stubCritic) Evaluate(_ context.Context, _, _ string) (*ai.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	s.calls++

	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx >= len(s.evaluations) {
		idx = len(s.evaluations) - 1
	}
	return s.evaluations[idx], nil
}

type approvedCall struct {
	employer string
	text     string
	score    float64
}

type flaggedCall struct {
	question   string
	reason     string
	confidence float64
}

type recordingNotifier struct {
	mu          sync.Mutex
	newMessages []string
	approved    []approvedCall
	flagged     []flaggedCall
	fail        bool
}

func (r *recordingNotifier) NewMessage(_ context.Context, employerName, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("transport unavailable")
	}
	r.newMessages = append(r.newMessages, employerName)
	return nil
}

func (r *recordingNotifier) Approved(_ context.Context, employerName, responseText string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("transport unavailable")
	}
	r.approved = append(r.approved, approvedCall{employer: employerName, text: responseText, score: score})
	return nil
}

func (r *recordingNotifier) Flagged(_ context.Context, question, reason string, confidence float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("transport unavailable")
	}
	r.flagged = append(r.flagged, flaggedCall{question: question, reason: reason, confidence: confidence})
	return nil
}

func testProfile() *profile.Profile {
	return &profile.Profile{Name: "Egemen", Summary: "Full-stack developer with Go experience."}
}

func passingEvaluation(score float64) *ai.Evaluation {
	return &ai.Evaluation{
		Score:            score,
		ProfessionalTone: true,
		Clarity:          true,
		Completeness:     true,
		Safety:           true,
		Relevance:        true,
		Feedback:         "Clear, professional, and complete.",
		Approved:         true,
	}
}

func failingEvaluation(score float64) *ai.Evaluation {
	return &ai.Evaluation{
		Score:    score,
		Clarity:  true,
		Feedback: "The reply does not address every question.",
	}
}

func TestProcessFirstPassApproval(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{
		Reply: "Thank you for the invitation, I am available next week for a video call.",
		Actions: []ai.Action{{
			Name: "notify_new_employer_message",
			Args: map[string]any{"employer_name": "TechCorp", "message_preview": "interview invitation"},
		}},
	}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(9.0)}}
	notifier := &recordingNotifier{}

	a := New(drafter, critic, notifier, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "We'd like to invite you for a technical interview.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeApproved {
		t.Fatalf("expected approved outcome, got %s", result.Outcome)
	}

	if result.Revisions != 0 {
		t.Fatalf("expected 0 revisions, got %d", result.Revisions)
	}

	if result.Reply == "" {
		t.Fatal("expected non-empty reply")
	}

	if len(notifier.newMessages) != 1 || notifier.newMessages[0] != "TechCorp" {
		t.Fatalf("expected one new-message notification, got %v", notifier.newMessages)
	}

	if len(notifier.approved) != 1 {
		t.Fatalf("expected exactly one approved notification, got %d", len(notifier.approved))
	}

	if notifier.approved[0].employer != "TechCorp" || notifier.approved[0].score != 9.0 {
		t.Fatalf("unexpected approved notification: %+v", notifier.approved[0])
	}

	if result.Flagged {
		t.Fatal("expected no unknown flag")
	}
}

func TestProcessExhaustsRevisionBudget(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{
		Reply: "Regarding your salary question, I will get back to you.",
		Actions: []ai.Action{{
			Name: "flag_unknown_question",
			Args: map[string]any{
				"question":         "What is your minimum acceptable salary?",
				"reason":           "salary_negotiation",
				"confidence_score": 0.2,
			},
		}},
	}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{failingEvaluation(5.0)}}
	notifier := &recordingNotifier{}

	a := New(drafter, critic, notifier, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "What is your minimum acceptable salary?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeExhaustedAccepted {
		t.Fatalf("expected exhausted outcome, got %s", result.Outcome)
	}

	if result.Revisions != MaxRevisions {
		t.Fatalf("expected %d revisions, got %d", MaxRevisions, result.Revisions)
	}

	if got := len(drafter.requests); got != MaxRevisions+1 {
		t.Fatalf("expected %d drafts, got %d", MaxRevisions+1, got)
	}

	if critic.calls != MaxRevisions+1 {
		t.Fatalf("expected %d evaluations, got %d", MaxRevisions+1, critic.calls)
	}

	if result.Reply == "" {
		t.Fatal("expected the last draft to be returned")
	}

	if !result.Flagged {
		t.Fatal("expected sticky unknown flag")
	}

	found := false
	for _, flag := range result.Flags {
		if flag.Reason == ReasonSalaryNegotiation {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a salary_negotiation flag, got %+v", result.Flags)
	}

	// Revision drafts must carry the evaluator feedback.
	second := drafter.requests[1]
	if second.PriorFeedback == "" || !strings.Contains(second.PriorFeedback, "does not address") {
		t.Fatalf("expected evaluator feedback in revision request, got %q", second.PriorFeedback)
	}
	if second.RevisionAttempt != 1 {
		t.Fatalf("expected revision attempt 1, got %d", second.RevisionAttempt)
	}

	if len(notifier.approved) != 0 {
		t.Fatalf("expected no approved notification, got %d", len(notifier.approved))
	}
}

func TestProcessRecoversFromOutOfRangeScore(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{Reply: "First attempt."}, {Reply: "Second attempt."}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{
		passingEvaluation(12.0), // out of contract
		passingEvaluation(9.0),
	}}
	notifier := &recordingNotifier{}

	a := New(drafter, critic, notifier, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("expected recovery, got error: %v", err)
	}

	if result.Outcome != OutcomeApproved {
		t.Fatalf("expected approved outcome after recovery, got %s", result.Outcome)
	}

	if result.Revisions != 1 {
		t.Fatalf("expected the validation failure to consume one revision, got %d", result.Revisions)
	}

	if result.Reply != "Second attempt." {
		t.Fatalf("unexpected final reply: %q", result.Reply)
	}
}

func TestProcessGenerationErrorIsFatal(t *testing.T) {
	drafter := &stubDrafter{errs: []error{errors.New("api unreachable")}, drafts: []*ai.Draft{nil}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(9.0)}}

	a := New(drafter, critic, &recordingNotifier{}, testProfile(), zap.NewNop())

	_, err := a.Process(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected fatal error")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
}

func TestProcessDoesNotDuplicateApprovedNotification(t *testing.T) {
	reply := "Thank you, I confirm my availability."
	drafter := &stubDrafter{drafts: []*ai.Draft{{
		Reply: reply,
		Actions: []ai.Action{{
			Name: "notify_response_approved",
			Args: map[string]any{
				"employer_name":    "TechCorp",
				"response_text":    reply,
				"evaluation_score": 9.0,
			},
		}},
	}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(9.0)}}
	notifier := &recordingNotifier{}

	a := New(drafter, critic, notifier, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "Interview invitation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeApproved {
		t.Fatalf("expected approved outcome, got %s", result.Outcome)
	}

	if len(notifier.approved) != 1 {
		t.Fatalf("expected exactly one approved notification, got %d", len(notifier.approved))
	}
}

func TestProcessRecoversReplyFromActionPayload(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{
		Reply: "",
		Actions: []ai.Action{{
			Name: "notify_response_approved",
			Args: map[string]any{
				"employer_name":    "TechCorp",
				"response_text":    "The full reply lives in the payload.",
				"evaluation_score": 8.0,
			},
		}},
	}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(8.0)}}

	a := New(drafter, critic, &recordingNotifier{}, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reply != "The full reply lives in the payload." {
		t.Fatalf("expected repaired reply, got %q", result.Reply)
	}
}

func TestProcessEmptyDraftIsFatal(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{Reply: "", Actions: nil}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(9.0)}}

	a := New(drafter, critic, &recordingNotifier{}, testProfile(), zap.NewNop())

	_, err := a.Process(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected error for empty draft")
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T: %v", err, err)
	}
}

func TestProcessNotificationFailureDoesNotAbort(t *testing.T) {
	drafter := &stubDrafter{drafts: []*ai.Draft{{
		Reply: "Reply text.",
		Actions: []ai.Action{{
			Name: "flag_unknown_question",
			Args: map[string]any{"question": "salary?", "reason": "salary_negotiation", "confidence_score": 0.3},
		}},
	}}}
	critic := &stubCritic{evaluations: []*ai.Evaluation{passingEvaluation(9.0)}}
	notifier := &recordingNotifier{fail: true}

	a := New(drafter, critic, notifier, testProfile(), zap.NewNop())

	result, err := a.Process(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("expected session to survive notifier failure: %v", err)
	}

	if result.Outcome != OutcomeApproved {
		t.Fatalf("expected approved outcome, got %s", result.Outcome)
	}

	// The flag is still recorded in session state even though delivery failed.
	if !result.Flagged || len(result.Flags) != 1 {
		t.Fatalf("expected recorded flag despite transport failure: %+v", result.Flags)
	}
}
