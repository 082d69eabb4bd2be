package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Namespace string

// NamespaceIP partitions state by client source address.
const NamespaceIP Namespace = "ip"

type Algorithm string

const (
	AlgorithmFixed   Algorithm = "fixed"
	AlgorithmSliding Algorithm = "sliding"
)

// ParseAlgorithm maps a configuration string onto a known Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmFixed, AlgorithmSliding:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, s)
	}
}

// Limit is the immutable policy a limiter enforces: at most Requests per
// Window. Window is truncated to whole seconds.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Validate rejects non-positive limits and windows shorter than one second.
func (l Limit) Validate() error {
	if l.Requests <= 0 {
		return fmt.Errorf("%w: requests must be positive, got %d", ErrInvalidConfig, l.Requests)
	}
	if l.Window < time.Second {
		return fmt.Errorf("%w: window must be at least 1s, got %s", ErrInvalidConfig, l.Window)
	}
	return nil
}

func (l Limit) windowSeconds() int64 {
	return int64(l.Window / time.Second)
}

type Decision struct {
	Allow      bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetTime  time.Time
}

type Identity struct {
	Namespace Namespace
	Key       string
}

func (id Identity) validate() error {
	if strings.TrimSpace(id.Key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidIdentity)
	}
	if id.Namespace == "" || strings.Contains(string(id.Namespace), ":") {
		return fmt.Errorf("%w: namespace %q", ErrInvalidIdentity, id.Namespace)
	}
	return nil
}

// Usage is a read-only snapshot of an identity's counters for one limiter.
type Usage struct {
	Algorithm Algorithm `json:"algorithm"`
	Limit     int64     `json:"limit"`
	Window    int64     `json:"window_seconds"`
	Key       string    `json:"key"`
	Count     int64     `json:"count"`
	// TTLSeconds is the current key's remaining lifetime, or one of the
	// negative TTL sentinels.
	TTLSeconds int64 `json:"ttl_seconds"`
	// Previous is only populated by the sliding window.
	Previous  int64   `json:"previous_count,omitempty"`
	Estimate  float64 `json:"estimate"`
	Remaining int64   `json:"remaining"`
}

type RateLimiter interface {
	Allow(ctx context.Context, id Identity) (Decision, error)
	Inspect(ctx context.Context, id Identity) ([]Usage, error)
	Reset(ctx context.Context, id Identity) (int64, error)
}
