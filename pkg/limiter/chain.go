package limiter

import (
	"context"
	"fmt"
)

// Policy is a limiter that knows its own Limit and Algorithm. FixedWindow
// and SlidingWindow both satisfy it.
type Policy interface {
	RateLimiter
	Limit() Limit
	Algorithm() Algorithm
}

// New builds the limiter for algo.
func New(algo Algorithm, store CounterStore, limit Limit, opts ...Option) (Policy, error) {
	switch algo {
	case AlgorithmFixed:
		return NewFixedWindow(store, limit, opts...)
	case AlgorithmSliding:
		return NewSlidingWindow(store, limit, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, algo)
	}
}

// Chain applies its limiters in order as sequential gates. The first denial
// short-circuits the rest and is returned as is; limiters evaluated before it
// keep the request they counted.
//
// When every limiter admits the request, the most restrictive decision is
// surfaced: the one with the fewest remaining requests, ties going to the
// earliest reset.
type Chain struct {
	limiters []Policy
}

var _ RateLimiter = (*Chain)(nil)

func NewChain(limiters ...Policy) *Chain {
	return &Chain{limiters: limiters}
}

func (c *Chain) Len() int { return len(c.limiters) }

// Allow admits an empty chain unconditionally with a zero Limit.
func (c *Chain) Allow(ctx context.Context, id Identity) (Decision, error) {
	var (
		surfaced Decision
		have     bool
	)
	for _, l := range c.limiters {
		dec, err := l.Allow(ctx, id)
		if err != nil {
			return Decision{}, err
		}
		if !dec.Allow {
			return dec, nil
		}
		if !have || moreRestrictive(dec, surfaced) {
			surfaced, have = dec, true
		}
	}
	if !have {
		return Decision{Allow: true}, nil
	}
	return surfaced, nil
}

func moreRestrictive(a, b Decision) bool {
	if a.Remaining != b.Remaining {
		return a.Remaining < b.Remaining
	}
	return a.ResetTime.Before(b.ResetTime)
}

// Inspect concatenates every limiter's usage, in chain order.
func (c *Chain) Inspect(ctx context.Context, id Identity) ([]Usage, error) {
	usages := make([]Usage, 0, len(c.limiters))
	for _, l := range c.limiters {
		u, err := l.Inspect(ctx, id)
		if err != nil {
			return nil, err
		}
		usages = append(usages, u...)
	}
	return usages, nil
}

// Reset clears the identity in every limiter and returns the total number of
// keys removed.
func (c *Chain) Reset(ctx context.Context, id Identity) (int64, error) {
	var total int64
	for _, l := range c.limiters {
		n, err := l.Reset(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
