package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Recorder is the counter surface used by the consumer loop
type Recorder interface {
	IncJobsReceived()
	IncJobsSucceeded()
	IncJobsFailed()
	IncJobsDeadLettered()
	IncJobsRetried()

	IncInflight()
	DecInflight()
}

// Metrics holds process-local counters for the worker service
type Metrics struct {
	// counters
	jobsReceived     uint64
	jobsSucceeded    uint64
	jobsFailed       uint64
	jobsDeadLettered uint64
	jobsRetried      uint64

	// gauges
	inflight int64
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncJobsReceived()     { atomic.AddUint64(&m.jobsReceived, 1) }
func (m *Metrics) IncJobsSucceeded()    { atomic.AddUint64(&m.jobsSucceeded, 1) }
func (m *Metrics) IncJobsFailed()       { atomic.AddUint64(&m.jobsFailed, 1) }
func (m *Metrics) IncJobsDeadLettered() { atomic.AddUint64(&m.jobsDeadLettered, 1) }
func (m *Metrics) IncJobsRetried()      { atomic.AddUint64(&m.jobsRetried, 1) }

func (m *Metrics) IncInflight() { atomic.AddInt64(&m.inflight, 1) }
func (m *Metrics) DecInflight() { atomic.AddInt64(&m.inflight, -1) }

// Handler serves the counters in a plaintext exposition format
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w,
			"jobs_received_total %d\n"+
				"jobs_succeeded_total %d\n"+
				"jobs_failed_total %d\n"+
				"jobs_dead_lettered_total %d\n"+
				"jobs_retried_total %d\n"+
				"inflight %d\n",
			atomic.LoadUint64(&m.jobsReceived),
			atomic.LoadUint64(&m.jobsSucceeded),
			atomic.LoadUint64(&m.jobsFailed),
			atomic.LoadUint64(&m.jobsDeadLettered),
			atomic.LoadUint64(&m.jobsRetried),
			atomic.LoadInt64(&m.inflight),
		)
	})
}
