package limiter

import (
	"context"
	"sync"
	"testing"
	"time"
)

// MockRecorder captures metrics in memory for assertion
type MockRecorder struct {
	mu       sync.Mutex
	Counters map[string]float64
	Timings  map[string][]float64
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		Counters: make(map[string]float64),
		Timings:  make(map[string][]float64),
	}
}

func (m *MockRecorder) Add(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[name] += value
}

func (m *MockRecorder) Observe(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timings[name] = append(m.Timings[name], value)
}

func TestLimiter_Metrics(t *testing.T) {
	store, mr, _ := newRedisForTest(t)

	mock := NewMockRecorder()

	limiter, err := NewFixedWindow(store, Limit{Requests: 1, Window: time.Minute}, WithRecorder(mock))
	if err != nil {
		t.Fatalf("Failed to create limiter: %v", err)
	}

	id := Identity{Namespace: "metrics_test", Key: "user_1"}

	if _, err = limiter.Allow(context.Background(), id); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if _, err = limiter.Allow(context.Background(), id); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}

	mr.SetError("ERR simulated outage")
	if _, err = limiter.Allow(context.Background(), id); err == nil {
		t.Fatal("Expected store error")
	}

	expect := map[string]float64{
		MetricCall:    3,
		MetricAllowed: 1,
		MetricDenied:  1,
		MetricError:   1,
	}
	for name, want := range expect {
		if got := mock.Counters[name]; got != want {
			t.Errorf("Expected %q counter to be %v, got %v", name, want, got)
		}
	}

	if timings := mock.Timings[MetricLatency]; len(timings) != 3 {
		t.Errorf("Expected 3 latency observations, got %d", len(timings))
	} else if timings[0] <= 0 {
		t.Errorf("Expected positive latency, got %v", timings[0])
	}
}

func TestLimiter_MetricsInvalidIdentity(t *testing.T) {
	mock := NewMockRecorder()

	limiter, err := NewFixedWindow(NewMemoryStore(), Limit{Requests: 1, Window: time.Minute}, WithRecorder(mock))
	if err != nil {
		t.Fatalf("Failed to create limiter: %v", err)
	}

	if _, err = limiter.Allow(context.Background(), Identity{Namespace: "bad:ns", Key: "user_1"}); err == nil {
		t.Fatal("Expected invalid identity error")
	}

	if got := mock.Counters[MetricRejected]; got != 1 {
		t.Errorf("Expected %q counter to be 1, got %v", MetricRejected, got)
	}
	if got := mock.Counters[MetricError]; got != 0 {
		t.Errorf("Expected %q counter to be 0, got %v", MetricError, got)
	}
}
