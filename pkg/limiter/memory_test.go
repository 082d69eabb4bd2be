package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a settable time source shared by store and limiter tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(t time.Time) *manualClock { return &manualClock{now: t} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestMemoryStore_IncrCreatesAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := store.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := newManualClock(time.Unix(1_000, 0))
	store := NewMemoryStore(WithStoreClock(clk.Now))

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, TTLNoKey, ttl)

	ok, err := store.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expire on a missing key reports false")

	_, err = store.Incr(ctx, "k")
	require.NoError(t, err)

	ttl, err = store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, TTLNoExpiry, ttl)

	ok, err = store.Expire(ctx, "k", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(4 * time.Second)
	ttl, err = store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, ttl)

	clk.Advance(6 * time.Second)
	_, exists, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists, "expired key must read as absent")

	n, err := store.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "increment after expiry starts over")
}

func TestMemoryStore_DelAndSweep(t *testing.T) {
	ctx := context.Background()
	clk := newManualClock(time.Unix(1_000, 0))
	store := NewMemoryStore(WithStoreClock(clk.Now))

	for _, k := range []string{"a", "b", "c"} {
		_, err := store.Incr(ctx, k)
		require.NoError(t, err)
	}
	_, err := store.Expire(ctx, "c", time.Second)
	require.NoError(t, err)

	n, err := store.Del(ctx, "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Incr(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, store.Ping(ctx))
}

func TestMemoryStore_RunStopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// Race Test
func TestMemoryStore_ThreadSafety(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewMemoryStore()

	var wg sync.WaitGroup
	wg.Add(100)
	for iter := 0; iter < 100; iter++ {
		go func() {
			defer wg.Done()
			_, _ = store.Incr(ctx, "shared")
		}()
	}
	wg.Wait()

	v, _, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)
}

func BenchmarkMemoryStore_Incr(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Incr(ctx, "bench")
	}
}
