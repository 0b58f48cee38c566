package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vipplay/content-dispatcher/internal/envelope"
	"github.com/vipplay/content-dispatcher/internal/worker/domain"
	"github.com/vipplay/content-dispatcher/shared/sqs"
)

// receiveErrorBackoff is the pause after a failed receive so a broken
// queue connection does not busy-spin the loop
const receiveErrorBackoff = 5 * time.Second

// pollLoop long-polls the queue and dispatches decoded messages to the
// worker pool. The loop keeps running across receive and message-level
// failures; only context cancellation stops it.
func (w *Worker) pollLoop(ctx context.Context) {
	w.logger.Info("Queue poll loop started",
		slog.String("worker_id", w.workerID),
		slog.Duration("wait_time", w.waitTime),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Poll loop stopped - context canceled")
			close(w.jobsChan)
			return
		case <-w.stopChan:
			w.logger.Info("Poll loop stopped - stop requested")
			close(w.jobsChan)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.batchSize, w.waitTime)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("Failed to receive messages",
				slog.Any("error", err),
			)
			select {
			case <-time.After(receiveErrorBackoff):
			case <-ctx.Done():
			}
			continue
		}

		for _, msg := range messages {
			w.metrics.IncJobsReceived()
			if !w.dispatchMessage(ctx, msg) {
				return
			}
		}
	}
}

// dispatchMessage decodes one message and hands it to the pool. Returns
// false when the loop should stop. Messages that fail to decode are
// dead-lettered immediately; a malformed body can never become valid.
func (w *Worker) dispatchMessage(ctx context.Context, msg sqs.Message) bool {
	env, err := envelope.Unmarshal(msg.Body)
	if err != nil {
		w.logger.Error("Failed to decode message, routing to dead-letter queue",
			slog.String("message_id", msg.MessageID),
			slog.Any("error", err),
		)
		w.deadLetter(ctx, msg.Body, msg.ReceiptHandle, err.Error())
		return true
	}

	jobMsg := &domain.JobMessage{
		Envelope:      env,
		Body:          msg.Body,
		MessageID:     msg.MessageID,
		ReceiptHandle: msg.ReceiptHandle,
		ReceiveCount:  msg.ReceiveCount,
	}

	select {
	case w.jobsChan <- jobMsg:
		w.logger.Debug("Job dispatched to worker pool",
			slog.String("job_id", env.JobID),
			slog.String("message_id", msg.MessageID),
			slog.Int("receive_count", msg.ReceiveCount),
		)
		return true
	case <-ctx.Done():
		// Leave the message unacknowledged; the visibility timeout
		// will make it available to another consumer.
		w.logger.Info("Poll loop stopped while dispatching, message abandoned",
			slog.String("job_id", env.JobID),
		)
		close(w.jobsChan)
		return false
	case <-w.stopChan:
		w.logger.Info("Poll loop stopped while dispatching, message abandoned",
			slog.String("job_id", env.JobID),
		)
		close(w.jobsChan)
		return false
	}
}

// deadLetter routes a message body to the dead-letter queue and removes
// the original from the main queue. If the dead-letter send fails, the
// original stays for redelivery rather than being lost.
func (w *Worker) deadLetter(ctx context.Context, body, receiptHandle, reason string) {
	if err := w.queue.SendToDeadLetter(ctx, body, reason); err != nil {
		w.logger.Error("Failed to dead-letter message, leaving for redelivery",
			slog.Any("error", err),
		)
		return
	}

	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("Failed to delete dead-lettered message",
			slog.Any("error", err),
		)
		return
	}

	w.metrics.IncJobsDeadLettered()
}
