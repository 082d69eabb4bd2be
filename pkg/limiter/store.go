package limiter

import (
	"context"
	"time"
)

// TTL sentinels, matching Redis' replies.
const (
	TTLNoKey    time.Duration = -2
	TTLNoExpiry time.Duration = -1
)

// CounterStore is the shared key-value service all limiter instances
// coordinate through. Incr must be atomic and linearizable per key; every
// other guarantee in this package rests on it.
//
// An expired key must be indistinguishable from an absent one.
type CounterStore interface {
	// Incr creates the key at 0 if absent and returns the incremented value.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get reports whether the key exists alongside its value.
	Get(ctx context.Context, key string) (int64, bool, error)
	// TTL returns the remaining lifetime, TTLNoKey or TTLNoExpiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
}
