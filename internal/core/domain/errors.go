package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Domain Errors
// =============================================================================

var (
	// ErrInvalidConfig is returned when a project configuration cannot be
	// accepted at workflow creation. Not retryable.
	ErrInvalidConfig = errors.New("invalid project configuration")

	// ErrWorkflowNotFound is returned for unknown workflow ids.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNoCompatiblePlatform is returned when no catalog entry supports
	// the project's kind.
	ErrNoCompatiblePlatform = errors.New("no compatible platform for project kind")

	// ErrInvalidTransition is returned for disallowed status transitions.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRetriesExhausted is the terminal form of a step action failure
	// once the step's retry budget is spent.
	ErrRetriesExhausted = errors.New("step retries exhausted")

	// ErrWorkflowTimeout is returned when execution exceeds its ceiling.
	ErrWorkflowTimeout = errors.New("workflow execution timed out")
)

// StepActionError wraps a platform adapter or probe failure during a step.
// The engine handles it inside the retry loop; callers only ever see the
// step's recorded error field.
type StepActionError struct {
	Step    StepID
	Attempt int
	Err     error
}

func (e *StepActionError) Error() string {
	return fmt.Sprintf("step %s attempt %d: %v", e.Step, e.Attempt, e.Err)
}

func (e *StepActionError) Unwrap() error {
	return e.Err
}
