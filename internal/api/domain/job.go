package domain

import (
	"errors"
)

// Job status values. Transitions are monotonic: a job never returns to
// QUEUED without an explicit re-enqueue.
const (
	JobStatusQueued     = "QUEUED"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusSucceeded  = "SUCCEEDED"
	JobStatusFailed     = "FAILED"
)

var (
	// ErrJobNotFound is returned when no job matches the id for the
	// requesting user. Jobs owned by other users are reported as not
	// found, never as forbidden.
	ErrJobNotFound = errors.New("job not found")
)
