package limiter

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultPrefix  = "ratelimit:"
	DefaultTimeout = 5 * time.Second
)

type options struct {
	prefix       string
	timeout      time.Duration
	recorder     MetricsRecorder
	now          func() time.Time
	preciseRetry bool
}

func defaultOptions() options {
	return options{
		prefix:   DefaultPrefix,
		timeout:  DefaultTimeout,
		recorder: &NoOpMetricsRecorder{},
		now:      time.Now,
	}
}

type Option func(*options)

// WithPrefix sets the key prefix (default "ratelimit:").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTimeout bounds each Allow, Inspect or Reset call, covering all store
// round trips it makes. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

func WithRecorder(r MetricsRecorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock overrides the time source. Only whole seconds are used.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPreciseRetryAfter reports the time until the window resets as the
// retry hint instead of the full window size.
func WithPreciseRetryAfter() Option {
	return func(o *options) {
		o.preciseRetry = true
	}
}

func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

// observe records call, outcome and latency metrics for one Allow.
func (o options) observe(algo Algorithm, start time.Time, dec Decision, err error) {
	tags := map[string]string{"algorithm": string(algo)}
	o.recorder.Add(MetricCall, 1, tags)
	switch {
	case errors.Is(err, ErrInvalidIdentity):
		o.recorder.Add(MetricRejected, 1, tags)
	case err != nil:
		o.recorder.Add(MetricError, 1, tags)
	case dec.Allow:
		o.recorder.Add(MetricAllowed, 1, tags)
	default:
		o.recorder.Add(MetricDenied, 1, tags)
	}
	o.recorder.Observe(MetricLatency, time.Since(start).Seconds(), tags)
}
