package rate

import "errors"

var (
	// ErrRateLimited is returned when an identity exceeds its endpoint budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
