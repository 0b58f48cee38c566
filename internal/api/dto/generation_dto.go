package dto

import "github.com/vipplay/content-dispatcher/internal/config"

// CreateGenerationRequest is the body of POST /api/v1/generations.
// The owner identity comes from the authentication middleware, never
// from the request body.
type CreateGenerationRequest struct {
	Topic            string   `json:"topic" binding:"required"`
	WordCount        int      `json:"word_count"`
	Tone             string   `json:"tone"`
	Keywords         []string `json:"keywords"`
	SEOOptimization  bool     `json:"seo_optimization"`
	ContentStructure string   `json:"content_structure"`
}

// CreateGenerationResponse confirms an accepted generation job
type CreateGenerationResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	EnqueuedAt string `json:"enqueued_at"`
}

// ListGenerationsRequest holds list query parameters
type ListGenerationsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// JobDTO is the API representation of a job record
type JobDTO struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	Payload      string `json:"payload"`
	Status       string `json:"status"`
	Result       string `json:"result,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	EnqueuedAt   string `json:"enqueued_at"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// ListGenerationsResponse is a page of jobs
type ListGenerationsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// QueueDiagnosticsResponse reports which queue settings are present,
// never their values
type QueueDiagnosticsResponse struct {
	Configured bool                   `json:"configured"`
	Settings   []config.SettingStatus `json:"settings"`
}

// TestMessageResponse is the result of the diagnostic send probe
type TestMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
