package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vipplay/content-dispatcher/internal/api/domain"
	"github.com/vipplay/content-dispatcher/internal/api/model"
	"github.com/vipplay/content-dispatcher/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// InsertJob records a newly enqueued job. The user_id is stored verbatim
// from the authenticated identity; it never changes after creation.
func (s *Storage) InsertJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, user_id, payload, status, enqueued_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.UserID,
		job.Payload,
		job.Status,
		job.EnqueuedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// GetJob fetches a job scoped to its owner. Read and write paths filter
// by the same identity source, so a job belonging to another user is
// indistinguishable from a missing one.
func (s *Storage) GetJob(ctx context.Context, jobID, userID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, user_id, payload, status, result, error_message,
			enqueued_at, started_at, completed_at
		FROM jobs
		WHERE job_id = $1 AND user_id = $2
	`

	err := s.db.GetContext(ctx, &job, query, jobID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

type JobFilter struct {
	UserID   string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	EnqueuedAt time.Time
	JobID      string
}

// ListJobs returns up to PageSize+1 jobs for the user, newest first.
// The extra row tells the caller whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
		SELECT
			job_id, user_id, payload, status, result, error_message,
			enqueued_at, started_at, completed_at
		FROM jobs
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (enqueued_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.EnqueuedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY enqueued_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
