package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vipplay/content-dispatcher/internal/worker/domain"
)

// processMessage runs one claimed job end to end. A nil return means the
// message can be deleted; a RetryableError leaves it for redelivery; any
// other error removes it from the main queue without retry.
func (w *Worker) processMessage(ctx context.Context, msg *domain.JobMessage) error {
	env := msg.Envelope

	// Cap redelivery before doing any work. A message past the cap has
	// failed repeatedly; route it aside instead of retrying forever.
	if w.maxReceiveCount > 0 && msg.ReceiveCount > w.maxReceiveCount {
		w.logger.Warn("Message exceeded max receive count, dead-lettering",
			slog.String("job_id", env.JobID),
			slog.Int("receive_count", msg.ReceiveCount),
			slog.Int("max_receive_count", w.maxReceiveCount),
		)

		if err := w.store.MarkFailed(ctx, env.JobID, "max receive count exceeded"); err != nil {
			w.logger.Error("Failed to record terminal failure",
				slog.String("job_id", env.JobID),
				slog.Any("error", err),
			)
		}

		if err := w.queue.SendToDeadLetter(ctx, msg.Body, domain.ErrMaxReceivesExceeded.Error()); err != nil {
			// Keep the message for redelivery rather than dropping it.
			return domain.NewRetryableError(err)
		}
		w.metrics.IncJobsDeadLettered()

		return fmt.Errorf("%w: %d receives", domain.ErrMaxReceivesExceeded, msg.ReceiveCount)
	}

	// Claim the side-store record (queued/failed/in_progress -> in_progress)
	job, err := w.store.ClaimJob(ctx, env.JobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			// Diagnostic probes and orphaned messages have no record;
			// discard them.
			w.logger.Warn("Message references unknown job, discarding",
				slog.String("job_id", env.JobID),
			)
			return err
		case errors.Is(err, domain.ErrJobAlreadyCompleted):
			// Duplicate delivery after a successful run. At-least-once
			// semantics make this normal; just drop the message.
			w.logger.Info("Duplicate delivery of completed job, discarding",
				slog.String("job_id", env.JobID),
			)
			return err
		default:
			return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
		}
	}

	// The envelope identity and the stored identity must agree exactly;
	// a mismatch means results would be invisible to the requesting user.
	if job.UserID != env.UserID {
		w.logger.Error("Job owner mismatch, dead-lettering",
			slog.String("job_id", env.JobID),
			slog.String("stored_user_id", job.UserID),
			slog.String("envelope_user_id", env.UserID),
		)

		if markErr := w.store.MarkFailed(ctx, env.JobID, domain.ErrOwnerMismatch.Error()); markErr != nil {
			w.logger.Error("Failed to record owner mismatch",
				slog.String("job_id", env.JobID),
				slog.Any("error", markErr),
			)
		}

		if dlErr := w.queue.SendToDeadLetter(ctx, msg.Body, domain.ErrOwnerMismatch.Error()); dlErr != nil {
			return domain.NewRetryableError(dlErr)
		}
		w.metrics.IncJobsDeadLettered()

		return domain.ErrOwnerMismatch
	}

	// Bound the attempt and keep the message invisible while it runs
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.extendVisibilityLoop(jobCtx, env.JobID, msg.ReceiptHandle, heartbeatDone)
	defer close(heartbeatDone)

	started := time.Now()
	content, err := w.pipeline.Generate(jobCtx, env.Payload)
	if err != nil {
		w.logger.Error("Generation failed",
			slog.String("job_id", env.JobID),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err),
		)

		if markErr := w.store.MarkFailed(ctx, env.JobID, err.Error()); markErr != nil {
			w.logger.Error("Failed to update job status to FAILED",
				slog.String("job_id", env.JobID),
				slog.Any("error", markErr),
			)
		}
		w.metrics.IncJobsFailed()

		return domain.NewRetryableError(fmt.Errorf("generation failed: %w", err))
	}

	w.logger.Info("Generation completed",
		slog.String("job_id", env.JobID),
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("content_size", len(content)),
	)

	if err := w.store.MarkSucceeded(ctx, env.JobID, content); err != nil {
		// The work is done; failing the message now would re-run the
		// whole generation. Log and acknowledge.
		w.logger.Error("Failed to update job status to SUCCEEDED",
			slog.String("job_id", env.JobID),
			slog.Any("error", err),
		)
	}
	w.metrics.IncJobsSucceeded()

	return nil
}

// extendVisibilityLoop periodically extends the message's visibility
// timeout while processing runs, so a long generation is not redelivered
// mid-flight
func (w *Worker) extendVisibilityLoop(ctx context.Context, jobID, receiptHandle string, done <-chan struct{}) {
	ticker := time.NewTicker(w.visibilityHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.queue.ExtendVisibility(ctx, receiptHandle, w.visibilityTimeout); err != nil {
				w.logger.Warn("Failed to extend message visibility",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
			} else {
				w.logger.Debug("Message visibility extended",
					slog.String("job_id", jobID),
				)
			}
		}
	}
}
