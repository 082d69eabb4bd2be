package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a CounterStore backed by Redis. It is safe to share across
// goroutines and across processes pointing at the same Redis.
type RedisStore struct {
	client redis.UniversalClient
}

var _ CounterStore = (*RedisStore)(nil)

// NewRedisStore wraps client and verifies connectivity.
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("limiter: redis client is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, unavailable("ping", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, unavailable("expire", err)
	}
	return ok, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("get", err)
	}
	return n, true, nil
}

func (r *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable("ttl", err)
	}
	// go-redis passes the -1/-2 replies through unscaled.
	if d < 0 {
		if d == TTLNoExpiry {
			return TTLNoExpiry, nil
		}
		return TTLNoKey, nil
	}
	return d, nil
}

func (r *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable("del", err)
	}
	return n, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return unavailable("ping", r.client.Ping(ctx).Err())
}
