package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/vipplay/content-dispatcher/internal/worker/domain"
)

// Storage handles all side-store operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob moves a job into IN_PROGRESS and stamps started_at. A job
// already IN_PROGRESS or FAILED may be re-claimed: redelivery of the
// message is the retry signal, and a crashed consumer's claim must not
// strand the record. Succeeded jobs are never re-claimed.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NOW(),
		    completed_at = NULL,
		    error_message = NULL
		WHERE job_id = $2
		  AND status <> $3
		RETURNING job_id, user_id, payload
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusInProgress, jobID, domain.JobStatusSucceeded).Scan(
		&job.JobID,
		&job.UserID,
		&job.Payload,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMissingClaim(ctx, jobID)
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusInProgress

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.String("user_id", job.UserID),
	)

	return &job, nil
}

// classifyMissingClaim distinguishes a job with no record from one that
// already reached a terminal success
func (s *Storage) classifyMissingClaim(ctx context.Context, jobID string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = $1`, jobID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("failed to check job status: %w", err)
	}

	if status == domain.JobStatusSucceeded {
		return domain.ErrJobAlreadyCompleted
	}

	return domain.ErrJobNotFound
}

// MarkSucceeded records a successful generation and its content
func (s *Storage) MarkSucceeded(ctx context.Context, jobID, content string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusSucceeded, content, jobID, domain.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to mark job succeeded: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Mark succeeded affected no rows (job not in progress)",
			slog.String("job_id", jobID),
		)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", domain.JobStatusSucceeded),
	)

	return nil
}

// MarkFailed records a processing failure. The job may be re-claimed on
// redelivery; only dead-lettering makes the failure terminal.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID, domain.JobStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", domain.JobStatusFailed),
		slog.String("error", errorMsg),
	)

	return nil
}
