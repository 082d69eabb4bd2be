package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     int64
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process CounterStore.
//
// It is safe for concurrent use by multiple goroutines, but its state is local
// to the process and is not shared across replicas. Use RedisStore when you
// need a single global limit across multiple instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

var _ CounterStore = (*MemoryStore)(nil)

type MemoryStoreOption func(*MemoryStore)

// WithStoreClock overrides the time source used for expiry.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore constructs a MemoryStore with empty state.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for key, evicting it if expired.
// Callers must hold m.mu.
func (m *MemoryStore) lookup(key string) *entry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("incr", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		e = &entry{}
		m.entries[key] = e
	}
	e.value++
	return e.value, nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("expire", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return false, nil
	}
	if ttl <= 0 {
		delete(m.entries, key)
		return true, nil
	}
	e.expiresAt = m.now().Add(ttl)
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, unavailable("get", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return 0, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("ttl", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	switch {
	case e == nil:
		return TTLNoKey, nil
	case e.expiresAt.IsZero():
		return TTLNoExpiry, nil
	default:
		return e.expiresAt.Sub(m.now()), nil
	}
}

func (m *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("del", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for _, key := range keys {
		if m.lookup(key) != nil {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return unavailable("ping", ctx.Err())
}

// Len reports the number of live keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !e.expired(m.now()) {
			n++
		}
	}
	return n
}

// Sweep drops every expired key and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired keys every interval until ctx is done. It fits an
// errgroup: eg.Go(func() error { return store.Run(ctx, time.Minute) }).
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}
