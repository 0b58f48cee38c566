package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vipplay/content-dispatcher/internal/api/domain"
	"github.com/vipplay/content-dispatcher/internal/api/model"
	"github.com/vipplay/content-dispatcher/internal/envelope"
)

// QueueSender sends a message body to the job queue
type QueueSender interface {
	Send(ctx context.Context, body string) (string, error)
}

// JobStore records job state in the side store
type JobStore interface {
	InsertJob(ctx context.Context, job *model.Job) error
}

// EnqueueError wraps a failed enqueue. The caller must surface it to the
// end user; an enqueue that failed is never reported as success.
type EnqueueError struct {
	JobID string
	Err   error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("failed to enqueue job %s: %v", e.JobID, e.Err)
}

func (e *EnqueueError) Unwrap() error {
	return e.Err
}

// Producer builds job envelopes and hands them to the queue
type Producer struct {
	queue  QueueSender
	store  JobStore
	logger *slog.Logger
}

func New(queue QueueSender, store JobStore, logger *slog.Logger) *Producer {
	return &Producer{
		queue:  queue,
		store:  store,
		logger: logger,
	}
}

// Enqueue creates a job for the given owner and payload, records it in
// the side store, and sends it to the queue. Returns the new job id.
func (p *Producer) Enqueue(ctx context.Context, userID string, params envelope.GenerationParams) (string, error) {
	jobID := uuid.New().String()
	now := time.Now().UTC()

	p.logger.Info("Enqueueing job",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.String("topic", params.Topic),
	)

	payloadJSON, err := json.Marshal(params)
	if err != nil {
		return "", &EnqueueError{JobID: jobID, Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	job := &model.Job{
		JobID:      jobID,
		UserID:     userID,
		Payload:    string(payloadJSON),
		Status:     domain.JobStatusQueued,
		EnqueuedAt: now,
	}

	if err := p.store.InsertJob(ctx, job); err != nil {
		p.logger.Error("Failed to record job before send",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return "", &EnqueueError{JobID: jobID, Err: err}
	}

	env := &envelope.Envelope{
		JobID:      jobID,
		UserID:     userID,
		Payload:    params,
		EnqueuedAt: now,
	}

	body, err := env.Marshal()
	if err != nil {
		return "", &EnqueueError{JobID: jobID, Err: err}
	}

	messageID, err := p.queue.Send(ctx, body)
	if err != nil {
		p.logger.Error("Enqueue failed",
			slog.String("job_id", jobID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return "", &EnqueueError{JobID: jobID, Err: err}
	}

	p.logger.Info("Job enqueued",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.String("message_id", messageID),
	)

	return jobID, nil
}

// SendTestMessage exercises the full producer-to-queue path with a
// synthetic payload and returns the resulting message id. No side-store
// record is created; the consumer discards envelopes with no job row.
func (p *Producer) SendTestMessage(ctx context.Context) (string, error) {
	env := &envelope.Envelope{
		JobID:  uuid.New().String(),
		UserID: "diagnostics",
		Payload: envelope.GenerationParams{
			Topic:     "queue connectivity probe",
			WordCount: 1,
		},
		EnqueuedAt: time.Now().UTC(),
	}

	body, err := env.Marshal()
	if err != nil {
		return "", err
	}

	p.logger.Info("Sending diagnostic test message",
		slog.String("job_id", env.JobID),
	)

	messageID, err := p.queue.Send(ctx, body)
	if err != nil {
		p.logger.Error("Diagnostic test message failed",
			slog.String("job_id", env.JobID),
			slog.Any("error", err),
		)
		return "", err
	}

	p.logger.Info("Diagnostic test message sent",
		slog.String("job_id", env.JobID),
		slog.String("message_id", messageID),
	)

	return messageID, nil
}
