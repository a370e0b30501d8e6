package workflow

import "errors"

// Common engine errors.
var (
	// ErrNotFound is returned when a referenced client or task does not
	// exist. Surfaced to the caller, never retried internally.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed indicates a stage was already advanced or a task
	// already completed. Callers of the engine never see it: the engine
	// collapses it to a successful no-op, since retried events are expected.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrUnknownTemplate indicates a trigger tag with no registered
	// follow-up template. Logged and skipped; never aborts an operation.
	ErrUnknownTemplate = errors.New("unknown template")
)
