package limiter

// NoOpMetricsRecorder is the default recorder; it discards everything so the
// hot path never has to nil-check.
type NoOpMetricsRecorder struct{}

func (n *NoOpMetricsRecorder) Add(name string, value float64, tags map[string]string)     {}
func (n *NoOpMetricsRecorder) Observe(name string, value float64, tags map[string]string) {}
