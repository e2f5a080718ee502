package agent

import "fmt"

// GenerationError means the underlying model was unreachable or produced
// unusable output while drafting. It is fatal to the session: no partial
// reply is usable.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError means an evaluation came back out of contract (malformed,
// out-of-range score, missing feedback). The loop recovers by treating the
// turn as not approved and spending a revision slot.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("evaluation out of contract: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotificationError means the notification transport failed. It is logged
// and never aborts the session.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
