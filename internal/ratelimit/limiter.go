package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	// Allowed reports whether the request was admitted.
	Allowed bool
	// RetryAfter is a lower-bound estimate of how long the caller must wait
	// before retrying. It is zero when Allowed is true and at least one
	// second otherwise.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns the wait estimate in whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(d.RetryAfter / time.Second)
}

// Limiter decides whether a request from the given identifier should be
// admitted. The identifier is an opaque client key scoping all counters;
// limit and window define the rate being enforced. Implementations must be
// safe for concurrent use.
type Limiter interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration) (Decision, error)
}
