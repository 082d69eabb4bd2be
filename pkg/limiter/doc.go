// Package limiter provides distributed rate limiting over a shared counter
// store, using fixed-window and weighted sliding-window counters.
//
// The primary entry point is the RateLimiter interface:
//
//	dec, err := limiter.Allow(ctx, id)
//
// The returned Decision contains whether the request is allowed, how many
// requests remain, and timing hints for callers that want to set rate-limit
// headers (for example, Retry-After).
//
// # Algorithms
//
// FixedWindow increments a single counter per identity. The first increment
// sets the key to expire after the window, so the window opens on the first
// request and the count restarts once the key is gone. The (Requests+1)-th
// request inside one window is denied.
//
// SlidingWindow anchors buckets to absolute time:
//
//	start = floor(now / window) * window
//
// It increments the current bucket (expiring after 2*window so it can be read
// as the previous bucket later), reads the previous bucket, and admits the
// request when
//
//	curr + prev * (window - (now - start)) / window <= Requests
//
// This approximates a true rolling window without storing timestamps.
//
// # Core Types
//
// Limit defines the policy:
//
//   - Requests: the threshold per window
//   - Window: the window size, truncated to whole seconds (minimum 1s)
//
// Identity defines "who" is being rate-limited. It is split into:
//
//   - Namespace: a logical grouping (for example, "ip", "api_key")
//   - Key: the identifier within that namespace (for example, "10.0.0.1")
//
// Limits are validated when a limiter is constructed; a non-positive
// threshold or a sub-second window yields ErrInvalidConfig.
//
// # Backends
//
// Limiters talk to a CounterStore, which needs atomic increment, expiry,
// get, ttl and delete:
//
//   - RedisStore: the shared store for multi-instance deployments.
//   - MemoryStore: an in-process map with expiry. Useful for tests and
//     single-instance deployments; it enforces nothing across replicas.
//
// # Context and Error Policy
//
// Allow accepts a context.Context that is passed to every store call. A store
// failure is returned wrapped in ErrStoreUnavailable, and errors.Is also
// matches the cause (for example context.DeadlineExceeded). There is no
// retry loop and no compensation: an increment that landed before the
// context was cancelled stays counted.
//
// This package does not impose a "fail open" vs "fail closed" policy. The
// caller decides whether to deny traffic (protect the backend) or allow
// traffic (maximize availability).
//
// A denial is never an error; it is a Decision with Allow == false.
//
// # Decision Semantics
//
//   - Allow reports whether the current request is permitted.
//   - Limit is the configured threshold.
//   - Remaining is floor(Requests - used), clamped to [0, Requests].
//   - RetryAfter is 0 when allowed; when denied it is the full window size,
//     or the time until ResetTime with WithPreciseRetryAfter.
//   - ResetTime is when the fixed window's key expires, or the end of the
//     current sliding bucket.
//
// # Chaining
//
// Chain evaluates several limiters in order. The first denial wins; when all
// admit, the decision with the fewest remaining requests is surfaced.
//
// # Storage Details
//
// Keys are built by WindowKey:
//
//	ratelimit:fixed:{namespace}:{window}:{key}
//	ratelimit:sliding:{namespace}:{window}:{start}:{key}
//
// Keys are never deleted except through Reset; they expire on their own.
//
// # Configuration
//
// Limiters are configured using the Functional Options pattern:
//
//	l, _ := limiter.NewSlidingWindow(store, limiter.Limit{Requests: 10, Window: 30 * time.Second},
//		limiter.WithPrefix("myapp:rate:"),
//		limiter.WithTimeout(100*time.Millisecond),
//		limiter.WithRecorder(myMetrics),
//	)
//
// Supported options:
//
//   - WithPrefix(string): Sets the key prefix (default "ratelimit:").
//   - WithTimeout(time.Duration): Bounds each call's store round trips
//     (default 5s).
//   - WithRecorder(MetricsRecorder): Injects a custom metrics backend.
//   - WithClock(func() time.Time): Overrides the time source.
//   - WithPreciseRetryAfter(): Reports time-until-reset as the retry hint.
package limiter
