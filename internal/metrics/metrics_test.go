package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	m := New()
	m.IncJobsReceived()
	m.IncJobsReceived()
	m.IncJobsSucceeded()
	m.IncJobsDeadLettered()
	m.IncInflight()
	m.IncInflight()
	m.DecInflight()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "jobs_received_total 2")
	assert.Contains(t, body, "jobs_succeeded_total 1")
	assert.Contains(t, body, "jobs_failed_total 0")
	assert.Contains(t, body, "jobs_dead_lettered_total 1")
	assert.Contains(t, body, "inflight 1")
}
