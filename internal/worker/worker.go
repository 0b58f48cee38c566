package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vipplay/content-dispatcher/internal/envelope"
	"github.com/vipplay/content-dispatcher/internal/metrics"
	"github.com/vipplay/content-dispatcher/internal/worker/domain"
	"github.com/vipplay/content-dispatcher/shared/sqs"
)

// Queue is the queue surface the worker consumes from
type Queue interface {
	Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]sqs.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
	ExtendVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error
	SendToDeadLetter(ctx context.Context, body, reason string) error
}

// JobStore is the side-store surface the worker updates
type JobStore interface {
	ClaimJob(ctx context.Context, jobID string) (*domain.Job, error)
	MarkSucceeded(ctx context.Context, jobID, content string) error
	MarkFailed(ctx context.Context, jobID, errorMsg string) error
}

// Pipeline executes the content generation task for a job payload
type Pipeline interface {
	Generate(ctx context.Context, params envelope.GenerationParams) (string, error)
}

// Config holds worker configuration
type Config struct {
	Logger              *slog.Logger
	Queue               Queue
	Store               JobStore
	Pipeline            Pipeline
	Metrics             metrics.Recorder
	Concurrency         int
	BatchSize           int
	WaitTime            time.Duration
	JobTimeout          time.Duration
	VisibilityTimeout   time.Duration
	VisibilityHeartbeat time.Duration
	MaxReceiveCount     int
}

// Worker represents the background job consumer
type Worker struct {
	logger              *slog.Logger
	queue               Queue
	store               JobStore
	pipeline            Pipeline
	metrics             metrics.Recorder
	workerID            string
	concurrency         int
	batchSize           int
	waitTime            time.Duration
	jobTimeout          time.Duration
	visibilityTimeout   time.Duration
	visibilityHeartbeat time.Duration
	maxReceiveCount     int
	jobsChan            chan *domain.JobMessage
	wg                  sync.WaitGroup
	stopChan            chan struct{}
	stopOnce            sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = concurrency
	}

	return &Worker{
		logger:              cfg.Logger,
		queue:               cfg.Queue,
		store:               cfg.Store,
		pipeline:            cfg.Pipeline,
		metrics:             cfg.Metrics,
		workerID:            fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		concurrency:         concurrency,
		batchSize:           batchSize,
		waitTime:            cfg.WaitTime,
		jobTimeout:          cfg.JobTimeout,
		visibilityTimeout:   cfg.VisibilityTimeout,
		visibilityHeartbeat: cfg.VisibilityHeartbeat,
		maxReceiveCount:     cfg.MaxReceiveCount,
		jobsChan:            make(chan *domain.JobMessage),
		stopChan:            make(chan struct{}),
	}
}

// Start begins polling the queue and processing jobs. It blocks until
// the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("batch_size", w.batchSize),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	w.spawnWorkerPool(ctx)

	w.pollLoop(ctx)

	w.logger.Info("Worker poll loop exited",
		slog.String("worker_id", w.workerID),
	)

	return nil
}

// Stop gracefully stops the worker, waiting for in-flight jobs to finish
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...",
		slog.String("worker_id", w.workerID),
	)
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped",
		slog.String("worker_id", w.workerID),
	)
}
