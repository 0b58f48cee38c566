package domain

import (
	"github.com/vipplay/content-dispatcher/internal/envelope"
)

// Job is the claimed side-store record for a generation job
type Job struct {
	JobID   string
	UserID  string
	Payload string
	Status  string
}

// JobMessage pairs a decoded envelope with the queue bookkeeping the
// worker needs to delete or abandon the message
type JobMessage struct {
	Envelope      *envelope.Envelope
	Body          string
	MessageID     string
	ReceiptHandle string
	ReceiveCount  int
}
