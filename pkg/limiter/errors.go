package limiter

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("limiter: invalid configuration")
	ErrInvalidIdentity  = errors.New("limiter: invalid identity")
	ErrStoreUnavailable = errors.New("limiter: store unavailable")

	errNilStore = fmt.Errorf("%w: store is required", ErrInvalidConfig)
)

// unavailable wraps a store failure so callers can match both
// ErrStoreUnavailable and the underlying cause (e.g. context.Canceled).
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
