package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vipplay/content-dispatcher/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency
// configuration. Each dispatched message is owned by exactly one
// goroutine, so a message is never processed twice concurrently within
// this consumer instance.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stop requested",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobs channel closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.Envelope.JobID),
				slog.Int("receive_count", msg.ReceiveCount),
			)

			w.metrics.IncInflight()
			err := w.processMessage(ctx, msg)
			w.metrics.DecInflight()

			w.settleMessage(ctx, workerName, msg, err)
		}
	}
}

// settleMessage deletes or abandons the message based on the processing
// outcome. A retryable failure leaves the message unacknowledged so the
// visibility timeout redelivers it; everything else is deleted.
func (w *Worker) settleMessage(ctx context.Context, workerName string, msg *domain.JobMessage, err error) {
	if err == nil {
		if delErr := w.queue.Delete(ctx, msg.ReceiptHandle); delErr != nil {
			w.logger.Error("Failed to delete message after success",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.Envelope.JobID),
				slog.Any("error", delErr),
			)
			return
		}

		w.logger.Info("Job completed successfully",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.Envelope.JobID),
		)
		return
	}

	var retryable *domain.RetryableError
	if errors.As(err, &retryable) {
		w.metrics.IncJobsRetried()
		w.logger.Warn("Job failed, message left for redelivery",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.Envelope.JobID),
			slog.Int("receive_count", msg.ReceiveCount),
			slog.Any("error", err),
		)
		return
	}

	// Non-retryable: the message has already been dead-lettered where
	// that applies; remove it from the main queue.
	w.logger.Error("Job failed without retry",
		slog.String("worker_name", workerName),
		slog.String("job_id", msg.Envelope.JobID),
		slog.Any("error", err),
	)

	if delErr := w.queue.Delete(ctx, msg.ReceiptHandle); delErr != nil {
		w.logger.Error("Failed to delete non-retryable message",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.Envelope.JobID),
			slog.Any("error", delErr),
		)
	}
}
