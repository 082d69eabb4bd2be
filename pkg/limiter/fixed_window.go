package limiter

import (
	"context"
	"time"
)

// FixedWindow counts requests per identity in a bucket that opens on the
// first request and closes when its key expires.
type FixedWindow struct {
	store CounterStore
	limit Limit
	opts  options
}

var _ RateLimiter = (*FixedWindow)(nil)

// NewFixedWindow validates limit eagerly; a zero window would otherwise
// create keys that never expire.
func NewFixedWindow(store CounterStore, limit Limit, opts ...Option) (*FixedWindow, error) {
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
	return &FixedWindow{store: store, limit: limit, opts: o}, nil
}

func (f *FixedWindow) Limit() Limit         { return f.limit }
func (f *FixedWindow) Algorithm() Algorithm { return AlgorithmFixed }

func (f *FixedWindow) key(id Identity) string {
	return WindowKey{
		Prefix:    f.opts.prefix,
		Algorithm: AlgorithmFixed,
		Identity:  id,
		Window:    f.limit.windowSeconds(),
	}.String()
}

// Allow counts the request and decides whether it fits in the window.
func (f *FixedWindow) Allow(ctx context.Context, id Identity) (dec Decision, err error) {
	start := time.Now()
	defer func() { f.opts.observe(AlgorithmFixed, start, dec, err) }()

	if err := id.validate(); err != nil {
		return Decision{}, err
	}

	ctx, cancel := f.opts.withTimeout(ctx)
	defer cancel()

	key := f.key(id)
	window := time.Duration(f.limit.windowSeconds()) * time.Second
	now := time.Unix(f.opts.now().Unix(), 0)

	count, err := f.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	reset := now.Add(window)
	if count == 1 {
		// Concurrent first requests may both land here; the writes are identical.
		if _, err := f.store.Expire(ctx, key, window); err != nil {
			return Decision{}, err
		}
	} else {
		ttl, err := f.store.TTL(ctx, key)
		if err != nil {
			return Decision{}, err
		}
		switch {
		case ttl == TTLNoExpiry:
			// The first writer died between INCR and EXPIRE; without this the
			// identity would stay limited forever.
			if _, err := f.store.Expire(ctx, key, window); err != nil {
				return Decision{}, err
			}
		case ttl > 0:
			reset = now.Add(ttl)
		}
	}

	retryAfter := window
	if f.opts.preciseRetry {
		retryAfter = reset.Sub(now)
	}
	return decide(f.limit, float64(count), reset, retryAfter), nil
}

// Inspect reports the identity's current count without incrementing it.
func (f *FixedWindow) Inspect(ctx context.Context, id Identity) ([]Usage, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := f.opts.withTimeout(ctx)
	defer cancel()

	key := f.key(id)
	count, _, err := f.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	ttl, err := f.store.TTL(ctx, key)
	if err != nil {
		return nil, err
	}

	return []Usage{{
		Algorithm:  AlgorithmFixed,
		Limit:      f.limit.Requests,
		Window:     f.limit.windowSeconds(),
		Key:        key,
		Count:      count,
		TTLSeconds: ttlSeconds(ttl),
		Estimate:   float64(count),
		Remaining:  remaining(f.limit.Requests, float64(count)),
	}}, nil
}

// Reset deletes the identity's counter so its next request opens a fresh window.
func (f *FixedWindow) Reset(ctx context.Context, id Identity) (int64, error) {
	if err := id.validate(); err != nil {
		return 0, err
	}

	ctx, cancel := f.opts.withTimeout(ctx)
	defer cancel()

	return f.store.Del(ctx, f.key(id))
}

func ttlSeconds(ttl time.Duration) int64 {
	if ttl < 0 {
		return int64(ttl)
	}
	return int64((ttl + time.Second - 1) / time.Second)
}
