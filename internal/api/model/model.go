package model

import (
	"database/sql"
	"time"
)

// Job is the side-store record of a generation job
type Job struct {
	JobID        string         `db:"job_id"`
	UserID       string         `db:"user_id"`
	Payload      string         `db:"payload"`
	Status       string         `db:"status"`
	Result       sql.NullString `db:"result"`
	ErrorMessage sql.NullString `db:"error_message"`
	EnqueuedAt   time.Time      `db:"enqueued_at"`
	StartedAt    sql.NullTime   `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}
