package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	limit := Limit{Requests: 10, Window: 30 * time.Second}
	reset := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name      string
		used      float64
		allow     bool
		remaining int64
	}{
		{"first request", 1, true, 9},
		{"exactly at limit", 10, true, 0},
		{"fractional estimate floors", 8.34, true, 1},
		{"over limit", 11, false, 0},
		{"far over limit never goes negative", 1_000, false, 0},
		{"zero usage caps at limit", 0, true, 10},
		{"negative usage caps at limit", -5, true, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := decide(limit, tt.used, reset, 30*time.Second)
			assert.Equal(t, tt.allow, dec.Allow)
			assert.Equal(t, tt.remaining, dec.Remaining)
			assert.Equal(t, int64(10), dec.Limit)
			assert.Equal(t, reset, dec.ResetTime)
			if tt.allow {
				assert.Zero(t, dec.RetryAfter, "retry hint only on denial")
			} else {
				assert.Equal(t, 30*time.Second, dec.RetryAfter)
			}
		})
	}
}

func TestLimitValidate(t *testing.T) {
	assert.NoError(t, Limit{Requests: 1, Window: time.Second}.Validate())
	assert.ErrorIs(t, Limit{Requests: 0, Window: time.Second}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Limit{Requests: 1, Window: 999 * time.Millisecond}.Validate(), ErrInvalidConfig)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm(" Sliding ")
	assert.NoError(t, err)
	assert.Equal(t, AlgorithmSliding, a)

	_, err = ParseAlgorithm("leaky")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWindowKey(t *testing.T) {
	id := Identity{Namespace: NamespaceIP, Key: "2001:db8::1"}

	fixed := WindowKey{Prefix: "rl:", Algorithm: AlgorithmFixed, Identity: id, Window: 60}
	assert.Equal(t, "rl:fixed:ip:60:2001:db8::1", fixed.String())

	sliding := WindowKey{Prefix: "rl:", Algorithm: AlgorithmSliding, Identity: id, Window: 30, Start: 1_700_000_010}
	assert.Equal(t, "rl:sliding:ip:30:1700000010:2001:db8::1", sliding.String())

	other := sliding
	other.Start -= 30
	assert.NotEqual(t, sliding.String(), other.String(), "distinct starts never share a slot")
}
