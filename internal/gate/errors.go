package gate

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingIdentifier reports that no client identifier could be derived
// for a request. It is a caller/configuration mistake, never a rate limit
// deny, and must not be retried.
var ErrMissingIdentifier = errors.New("gate: no client identifier for request")

// LimitExceededError is the structured deny signal. It is expected and
// frequent; callers recover by waiting RetryAfter and retrying.
type LimitExceededError struct {
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("gate: rate limit exceeded, retry after %ds", e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the wait time in whole seconds, suitable for a
// Retry-After header.
func (e *LimitExceededError) RetryAfterSeconds() int {
	return int(e.RetryAfter / time.Second)
}
