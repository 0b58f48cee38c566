package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformed is returned when a queue message body cannot be decoded
// into a valid envelope. Such messages are dead-lettered, never retried.
var ErrMalformed = errors.New("malformed job envelope")

// GenerationParams are the content generation parameters carried in a job.
// The queue layer treats them as opaque.
type GenerationParams struct {
	Topic            string   `json:"topic"`
	WordCount        int      `json:"word_count"`
	Tone             string   `json:"tone,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	SEOOptimization  bool     `json:"seo_optimization,omitempty"`
	ContentStructure string   `json:"content_structure,omitempty"`
}

// Envelope is the wire representation of a job. Producer and consumer
// share this exact schema.
type Envelope struct {
	JobID      string           `json:"job_id"`
	UserID     string           `json:"user_id"`
	Payload    GenerationParams `json:"payload"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// Marshal serializes the envelope into a queue message body
func (e *Envelope) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job envelope: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes and validates a queue message body. Any decode or
// validation failure wraps ErrMalformed.
func Unmarshal(body string) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if e.JobID == "" {
		return nil, fmt.Errorf("%w: job_id is empty", ErrMalformed)
	}

	if _, err := uuid.Parse(e.JobID); err != nil {
		return nil, fmt.Errorf("%w: job_id is not a UUID: %v", ErrMalformed, err)
	}

	if e.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is empty", ErrMalformed)
	}

	return &e, nil
}
