package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipplay/content-dispatcher/internal/api/domain"
	"github.com/vipplay/content-dispatcher/internal/api/dto"
	"github.com/vipplay/content-dispatcher/internal/api/model"
	"github.com/vipplay/content-dispatcher/internal/api/storage"
	"github.com/vipplay/content-dispatcher/internal/config"
	"github.com/vipplay/content-dispatcher/internal/envelope"
	"github.com/vipplay/content-dispatcher/shared/sqs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEnqueuer struct {
	enqueueJobID  string
	enqueueErr    error
	gotUserID     string
	gotParams     envelope.GenerationParams
	testMessageID string
	testErr       error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, userID string, params envelope.GenerationParams) (string, error) {
	f.gotUserID = userID
	f.gotParams = params
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	return f.enqueueJobID, nil
}

func (f *fakeEnqueuer) SendTestMessage(_ context.Context) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}
	return f.testMessageID, nil
}

type fakeJobReader struct {
	jobs      map[string]*model.Job
	listJobs  []model.Job
	listErr   error
	gotFilter storage.JobFilter
}

func (f *fakeJobReader) GetJob(_ context.Context, jobID, userID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobReader) ListJobs(_ context.Context, filter storage.JobFilter) ([]model.Job, error) {
	f.gotFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listJobs, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(deps *Dependencies, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})

	h := NewGenerationHandler(deps)
	r.POST("/api/v1/generations", h.CreateGeneration)
	r.GET("/api/v1/generations", h.ListGenerations)
	r.GET("/api/v1/generations/:job_id", h.GetGeneration)
	r.GET("/api/v1/diagnostics/queue", h.QueueDiagnostics)
	r.POST("/api/v1/diagnostics/queue/test-message", h.SendTestMessage)
	return r
}

func configuredQueue() *config.QueueConfig {
	return &config.QueueConfig{
		Region:          "us-east-1",
		URL:             "https://sqs.us-east-1.amazonaws.com/123456789012/content-jobs",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "aws-secret",
	}
}

func TestCreateGeneration(t *testing.T) {
	enq := &fakeEnqueuer{enqueueJobID: "7d9f2c44-8a1b-4f6e-9c3d-2e5a7b8c9d0e"}
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  &fakeJobReader{},
		Producer: enq,
		QueueCfg: configuredQueue(),
	}, "user-1")

	body := `{"topic":"Go concurrency patterns","tone":"Professional","keywords":["goroutines"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.CreateGenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, enq.enqueueJobID, resp.JobID)
	assert.Equal(t, domain.JobStatusQueued, resp.Status)

	// Identity comes from the auth layer, not the body
	assert.Equal(t, "user-1", enq.gotUserID)
	assert.Equal(t, "Go concurrency patterns", enq.gotParams.Topic)
	assert.Equal(t, defaultWordCount, enq.gotParams.WordCount)
}

func TestCreateGeneration_MissingTopic(t *testing.T) {
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  &fakeJobReader{},
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGeneration_EnqueueFailure(t *testing.T) {
	tests := []struct {
		name       string
		enqueueErr error
		wantStatus int
	}{
		{
			name:       "queue not configured",
			enqueueErr: fmt.Errorf("send: %w", sqs.ErrNotConfigured),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "send failure",
			enqueueErr: errors.New("network unreachable"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&Dependencies{
				Logger:   testLogger(),
				Storage:  &fakeJobReader{},
				Producer: &fakeEnqueuer{enqueueErr: tt.enqueueErr},
				QueueCfg: configuredQueue(),
			}, "user-1")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(`{"topic":"x"}`))
			r.ServeHTTP(w, req)

			// A failed enqueue is never reported as success
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateGeneration_NoProducer(t *testing.T) {
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  &fakeJobReader{},
		QueueCfg: &config.QueueConfig{},
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(`{"topic":"x"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetGeneration(t *testing.T) {
	jobID := "7d9f2c44-8a1b-4f6e-9c3d-2e5a7b8c9d0e"
	store := &fakeJobReader{
		jobs: map[string]*model.Job{
			jobID: {
				JobID:      jobID,
				UserID:     "user-1",
				Payload:    `{"topic":"x"}`,
				Status:     domain.JobStatusSucceeded,
				Result:     sql.NullString{String: "generated content", Valid: true},
				EnqueuedAt: time.Now().UTC(),
			},
		},
	}

	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  store,
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/"+jobID, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.JobDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, jobID, resp.JobID)
	assert.Equal(t, domain.JobStatusSucceeded, resp.Status)
	assert.Equal(t, "generated content", resp.Result)
}

func TestGetGeneration_OtherUsersJobIsNotFound(t *testing.T) {
	jobID := "7d9f2c44-8a1b-4f6e-9c3d-2e5a7b8c9d0e"
	store := &fakeJobReader{
		jobs: map[string]*model.Job{
			jobID: {JobID: jobID, UserID: "user-2", Status: domain.JobStatusQueued},
		},
	}

	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  store,
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/"+jobID, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGeneration_InvalidJobID(t *testing.T) {
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  &fakeJobReader{},
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGenerations(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Three rows for a page size of two: the extra row signals more pages
	rows := make([]model.Job, 3)
	for i := range rows {
		rows[i] = model.Job{
			JobID:      fmt.Sprintf("7d9f2c44-8a1b-4f6e-9c3d-2e5a7b8c9d0%d", i),
			UserID:     "user-1",
			Status:     domain.JobStatusQueued,
			EnqueuedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}

	store := &fakeJobReader{listJobs: rows}
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  store,
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations?page_size=2", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListGenerationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)
	require.NotEmpty(t, resp.NextCursor)

	// Listing is always scoped to the caller
	assert.Equal(t, "user-1", store.gotFilter.UserID)

	cursor, err := DecodeJobCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].JobID, cursor.JobID)
	assert.True(t, cursor.EnqueuedAt.Equal(rows[1].EnqueuedAt))
}

func TestListGenerations_InvalidCursor(t *testing.T) {
	r := newTestRouter(&Dependencies{
		Logger:   testLogger(),
		Storage:  &fakeJobReader{},
		Producer: &fakeEnqueuer{},
		QueueCfg: configuredQueue(),
	}, "user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations?cursor=%21%21not-base64", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
