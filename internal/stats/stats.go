// Package stats keeps process-wide request and admission tallies. It
// implements limiter.MetricsRecorder so limiters report into it directly.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

type Recorder struct {
	started time.Time

	requests    atomic.Int64
	calls       atomic.Int64
	allowed     atomic.Int64
	denied      atomic.Int64
	storeErrors atomic.Int64
	rejected    atomic.Int64
	// latency accumulates limiter round trips in microseconds.
	latency atomic.Int64
}

var _ limiter.MetricsRecorder = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{started: time.Now()}
}

// IncRequests counts one inbound HTTP request and returns the new total.
func (r *Recorder) IncRequests() int64 {
	return r.requests.Add(1)
}

func (r *Recorder) Add(name string, value float64, _ map[string]string) {
	n := int64(value)
	switch name {
	case limiter.MetricCall:
		r.calls.Add(n)
	case limiter.MetricAllowed:
		r.allowed.Add(n)
	case limiter.MetricDenied:
		r.denied.Add(n)
	case limiter.MetricError:
		r.storeErrors.Add(n)
	case limiter.MetricRejected:
		r.rejected.Add(n)
	}
}

func (r *Recorder) Observe(name string, value float64, _ map[string]string) {
	if name == limiter.MetricLatency {
		r.latency.Add(int64(value * 1e6))
	}
}

type Snapshot struct {
	Uptime          string  `json:"uptime"`
	TotalRequests   int64   `json:"total_requests"`
	LimiterCalls    int64   `json:"limiter_calls"`
	Allowed         int64   `json:"allowed"`
	Denied          int64   `json:"denied"`
	StoreErrors     int64   `json:"store_errors"`
	Rejected        int64   `json:"rejected_identities"`
	AvgLatencyMicro float64 `json:"avg_limiter_latency_us"`
}

func (r *Recorder) Snapshot() Snapshot {
	calls := r.calls.Load()
	s := Snapshot{
		Uptime:        time.Since(r.started).Round(time.Second).String(),
		TotalRequests: r.requests.Load(),
		LimiterCalls:  calls,
		Allowed:       r.allowed.Load(),
		Denied:        r.denied.Load(),
		StoreErrors:   r.storeErrors.Load(),
		Rejected:      r.rejected.Load(),
	}
	if calls > 0 {
		s.AvgLatencyMicro = float64(r.latency.Load()) / float64(calls)
	}
	return s
}
