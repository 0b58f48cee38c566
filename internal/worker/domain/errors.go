package domain

import "errors"

var (
	// ErrJobNotFound is returned when a queue message references a job
	// with no side-store record (orphaned message or diagnostic probe)
	ErrJobNotFound = errors.New("job not found in side store")

	// ErrJobAlreadyCompleted is returned when a redelivered message
	// references a job that already succeeded
	ErrJobAlreadyCompleted = errors.New("job already completed")

	// ErrOwnerMismatch is returned when the envelope's user_id does not
	// match the side-store record. This is a data-integrity fault, not a
	// queue fault, and is never retried.
	ErrOwnerMismatch = errors.New("envelope user_id does not match stored job owner")

	// ErrMaxReceivesExceeded is returned when a message has been
	// redelivered more times than the configured cap
	ErrMaxReceivesExceeded = errors.New("max receive count exceeded")
)

// RetryableError wraps transient processing failures. The message is
// left unacknowledged so the visibility timeout redelivers it.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
