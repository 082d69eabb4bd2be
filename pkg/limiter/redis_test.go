package limiter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisForTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	require.NoError(t, err)
	return store, mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisForTest(t)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, TTLNoKey, ttl)

	n, err := store.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err = store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, TTLNoExpiry, ttl)

	ok, err = store.Expire(ctx, "k", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err = store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ttl)

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	mr.FastForward(10 * time.Second)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired key reads as absent")

	_, err = store.Incr(ctx, "a")
	require.NoError(t, err)
	removed, err := store.Del(ctx, "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = store.Del(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisForTest(t)

	mr.SetError("LOADING Redis is loading the dataset in memory")
	_, err := store.Incr(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, store.Ping(ctx), ErrStoreUnavailable)
	mr.SetError("")

	mr.Close()
	_, _, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	_, err := NewRedisStore(client)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = NewRedisStore(nil)
	assert.Error(t, err)
}

func TestRedisLimiter_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, mr, _ := newRedisForTest(t)

	t.Run("FixedWindowFlow", func(t *testing.T) {
		key := fmt.Sprintf("it_test_%d", time.Now().UnixNano())
		id := Identity{Namespace: "integration", Key: key}

		fw, err := NewFixedWindow(store, Limit{Requests: 5, Window: time.Minute})
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			dec, err := fw.Allow(ctx, id)
			require.NoError(t, err)
			assert.True(t, dec.Allow, "request %d", i+1)
		}
		dec, err := fw.Allow(ctx, id)
		require.NoError(t, err)
		assert.False(t, dec.Allow)
		assert.Equal(t, time.Minute, dec.RetryAfter)

		mr.FastForward(time.Minute)
		dec, err = fw.Allow(ctx, id)
		require.NoError(t, err)
		assert.True(t, dec.Allow)
		assert.Equal(t, int64(4), dec.Remaining)
	})

	t.Run("DistributedState", func(t *testing.T) {
		key := fmt.Sprintf("dist_test_%d", time.Now().UnixNano())
		id := Identity{Namespace: "integration", Key: key}
		limit := Limit{Requests: 1, Window: time.Minute}

		// Instance A consumes the quota
		limiterA, _ := NewFixedWindow(store, limit)
		_, err := limiterA.Allow(ctx, id)
		require.NoError(t, err)

		// Instance B shares the same store
		limiterB, _ := NewFixedWindow(store, limit)
		dec, err := limiterB.Allow(ctx, id)
		require.NoError(t, err)
		assert.False(t, dec.Allow, "Instance B should see the request counted by Instance A")
	})

	t.Run("SlidingWindowExpiry", func(t *testing.T) {
		id := Identity{Namespace: "integration", Key: "sliding"}
		clk := newManualClock(time.Unix(bucketStart, 0))
		sw, err := NewSlidingWindow(store, Limit{Requests: 3, Window: 30 * time.Second}, WithClock(clk.Now))
		require.NoError(t, err)

		_, err = sw.Allow(ctx, id)
		require.NoError(t, err)

		usage, err := sw.Inspect(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(60), usage[0].TTLSeconds)
	})
}
