package domain

// Job status constants. Transitions are monotonic; only a redelivery of
// the same queued message moves a non-terminal job back into progress.
const (
	JobStatusQueued     = "QUEUED"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusSucceeded  = "SUCCEEDED"
	JobStatusFailed     = "FAILED"
)
