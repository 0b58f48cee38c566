package handler

import (
	"context"
	"log/slog"

	"github.com/vipplay/content-dispatcher/internal/api/model"
	"github.com/vipplay/content-dispatcher/internal/api/storage"
	"github.com/vipplay/content-dispatcher/internal/config"
	"github.com/vipplay/content-dispatcher/internal/envelope"
)

// Enqueuer creates generation jobs and sends diagnostic probes
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string, params envelope.GenerationParams) (string, error)
	SendTestMessage(ctx context.Context) (string, error)
}

// JobReader reads job records scoped to their owner
type JobReader interface {
	GetJob(ctx context.Context, jobID, userID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
}

// Dependencies holds all dependencies needed by handlers.
// Producer may be nil when the queue client could not be built; the
// diagnostics endpoints still work in that state.
type Dependencies struct {
	Logger   *slog.Logger
	Storage  JobReader
	Producer Enqueuer
	QueueCfg *config.QueueConfig
}

// GenerationHandler handles generation job HTTP requests
type GenerationHandler struct {
	logger   *slog.Logger
	storage  JobReader
	producer Enqueuer
	queueCfg *config.QueueConfig
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(deps *Dependencies) *GenerationHandler {
	return &GenerationHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		producer: deps.Producer,
		queueCfg: deps.QueueCfg,
	}
}
