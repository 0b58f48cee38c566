package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vipplay/content-dispatcher/internal/api/domain"
	"github.com/vipplay/content-dispatcher/internal/api/dto"
	"github.com/vipplay/content-dispatcher/internal/api/model"
	"github.com/vipplay/content-dispatcher/internal/api/storage"
	"github.com/vipplay/content-dispatcher/internal/envelope"
	"github.com/vipplay/content-dispatcher/shared/sqs"
)

const defaultWordCount = 1200

// CreateGeneration handles POST /api/v1/generations.
// The job owner is the authenticated identity; the request body cannot
// name a different user.
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.WordCount <= 0 {
		req.WordCount = defaultWordCount
	}

	if h.producer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Queue is not configured",
		})
		return
	}

	params := envelope.GenerationParams{
		Topic:            req.Topic,
		WordCount:        req.WordCount,
		Tone:             req.Tone,
		Keywords:         req.Keywords,
		SEOOptimization:  req.SEOOptimization,
		ContentStructure: req.ContentStructure,
	}

	jobID, err := h.producer.Enqueue(c.Request.Context(), userID, params)
	if err != nil {
		h.logger.Error("Failed to enqueue generation job",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)

		if errors.Is(err, sqs.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Queue is not configured",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue generation job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateGenerationResponse{
		JobID:      jobID,
		Status:     domain.JobStatusQueued,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetGeneration handles GET /api/v1/generations/:job_id.
// A job owned by another user is reported as not found.
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	userID := c.GetString("user_id")

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJob(c.Request.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ListGenerations handles GET /api/v1/generations.
// Results are always scoped to the authenticated identity.
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.ListGenerationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		UserID:   userID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = jobToDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			EnqueuedAt: lastJob.EnqueuedAt,
			JobID:      lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListGenerationsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func jobToDTO(job *model.Job) dto.JobDTO {
	d := dto.JobDTO{
		JobID:      job.JobID,
		UserID:     job.UserID,
		Payload:    job.Payload,
		Status:     job.Status,
		EnqueuedAt: job.EnqueuedAt.Format(time.RFC3339),
	}
	d.Result = nullString(job.Result)
	d.ErrorMessage = nullString(job.ErrorMessage)
	if job.StartedAt.Valid {
		d.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.CompletedAt.Valid {
		d.CompletedAt = job.CompletedAt.Time.Format(time.RFC3339)
	}
	return d
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}
