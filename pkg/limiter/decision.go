package limiter

import (
	"math"
	"time"
)

// decide turns a limiter's raw count (or estimate) into the admission
// outcome. used is the post-increment total including the current request.
// Remaining is clamped to [0, limit]; RetryAfter is only set on denial.
func decide(limit Limit, used float64, reset time.Time, retryAfter time.Duration) Decision {
	dec := Decision{
		Allow:     used <= float64(limit.Requests),
		Limit:     limit.Requests,
		Remaining: remaining(limit.Requests, used),
		ResetTime: reset,
	}
	if !dec.Allow {
		dec.RetryAfter = max(retryAfter, 0)
	}
	return dec
}

func remaining(limit int64, used float64) int64 {
	left := math.Floor(float64(limit) - used)
	if left <= 0 || math.IsNaN(left) {
		return 0
	}
	return min(int64(left), limit)
}
