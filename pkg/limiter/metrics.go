package limiter

// MetricsRecorder receives counters and observations from limiters.
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// Metric names emitted by the limiters.
const (
	MetricCall    = "ratelimit.call"
	MetricAllowed = "ratelimit.allowed"
	MetricDenied  = "ratelimit.denied"
	MetricError   = "ratelimit.error"
	MetricLatency = "ratelimit.latency"

	// MetricRejected counts calls refused before reaching the store
	// because the identity was malformed.
	MetricRejected = "ratelimit.rejected"
)
