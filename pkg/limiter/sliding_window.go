package limiter

import (
	"context"
	"time"
)

// SlidingWindow approximates a rolling window by blending the current fixed
// bucket with the previous one, weighted by how much of the current bucket
// is still ahead:
//
//	estimate = curr + prev * (window - elapsed) / window
//
// Buckets are anchored to absolute time (floor(now/window)*window), so every
// instance and every identity agrees on the boundaries.
type SlidingWindow struct {
	store CounterStore
	limit Limit
	opts  options
}

var _ RateLimiter = (*SlidingWindow)(nil)

func NewSlidingWindow(store CounterStore, limit Limit, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, errNilStore
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SlidingWindow{store: store, limit: limit, opts: o}, nil
}

func (s *SlidingWindow) Limit() Limit         { return s.limit }
func (s *SlidingWindow) Algorithm() Algorithm { return AlgorithmSliding }

// slot is one evaluation's view of the bucket layout.
type slot struct {
	now, start, elapsed int64
	curr, prev          string
}

func (s *SlidingWindow) slot(id Identity) slot {
	window := s.limit.windowSeconds()
	now := s.opts.now().Unix()
	start := floorDiv(now, window) * window

	key := WindowKey{
		Prefix:    s.opts.prefix,
		Algorithm: AlgorithmSliding,
		Identity:  id,
		Window:    window,
		Start:     start,
	}
	curr := key.String()
	key.Start = start - window

	return slot{
		now:     now,
		start:   start,
		elapsed: now - start,
		curr:    curr,
		prev:    key.String(),
	}
}

// Weight is the previous bucket's contribution at elapsed seconds into the
// current one: 1 at the boundary, approaching 0 as the bucket fills.
func Weight(elapsed, window int64) float64 {
	if window <= 0 {
		return 0
	}
	elapsed = min(max(elapsed, 0), window)
	return float64(window-elapsed) / float64(window)
}

// Estimate blends the two bucket counts.
func Estimate(curr, prev, elapsed, window int64) float64 {
	return float64(curr) + float64(prev)*Weight(elapsed, window)
}

// Allow counts the request in the current bucket and admits it when the
// blended estimate stays within the limit. Reading the previous bucket is
// not atomic with the increment, so the result is an estimate.
func (s *SlidingWindow) Allow(ctx context.Context, id Identity) (dec Decision, err error) {
	begin := time.Now()
	defer func() { s.opts.observe(AlgorithmSliding, begin, dec, err) }()

	if err := id.validate(); err != nil {
		return Decision{}, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	window := s.limit.windowSeconds()
	sl := s.slot(id)

	curr, err := s.store.Incr(ctx, sl.curr)
	if err != nil {
		return Decision{}, err
	}
	// Twice the window so the bucket can still be read as "previous"
	// throughout the next one.
	ttl := 2 * time.Duration(window) * time.Second
	if curr == 1 {
		if _, err := s.store.Expire(ctx, sl.curr, ttl); err != nil {
			return Decision{}, err
		}
	} else {
		left, err := s.store.TTL(ctx, sl.curr)
		if err != nil {
			return Decision{}, err
		}
		if left == TTLNoExpiry {
			// A failed EXPIRE after the first INCR left the bucket immortal.
			if _, err := s.store.Expire(ctx, sl.curr, ttl); err != nil {
				return Decision{}, err
			}
		}
	}

	prev, _, err := s.store.Get(ctx, sl.prev)
	if err != nil {
		return Decision{}, err
	}

	now := time.Unix(sl.now, 0)
	reset := time.Unix(sl.start+window, 0)
	retryAfter := time.Duration(window) * time.Second
	if s.opts.preciseRetry {
		retryAfter = reset.Sub(now)
	}

	return decide(s.limit, Estimate(curr, prev, sl.elapsed, window), reset, retryAfter), nil
}

// Inspect reads both buckets and reports the current estimate without
// counting a request.
func (s *SlidingWindow) Inspect(ctx context.Context, id Identity) ([]Usage, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	window := s.limit.windowSeconds()
	sl := s.slot(id)

	curr, _, err := s.store.Get(ctx, sl.curr)
	if err != nil {
		return nil, err
	}
	prev, _, err := s.store.Get(ctx, sl.prev)
	if err != nil {
		return nil, err
	}
	ttl, err := s.store.TTL(ctx, sl.curr)
	if err != nil {
		return nil, err
	}

	estimate := Estimate(curr, prev, sl.elapsed, window)
	return []Usage{{
		Algorithm:  AlgorithmSliding,
		Limit:      s.limit.Requests,
		Window:     window,
		Key:        sl.curr,
		Count:      curr,
		TTLSeconds: ttlSeconds(ttl),
		Previous:   prev,
		Estimate:   estimate,
		Remaining:  remaining(s.limit.Requests, estimate),
	}}, nil
}

// Reset deletes both the current and previous buckets for the identity.
func (s *SlidingWindow) Reset(ctx context.Context, id Identity) (int64, error) {
	if err := id.validate(); err != nil {
		return 0, err
	}

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	sl := s.slot(id)
	return s.store.Del(ctx, sl.curr, sl.prev)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
