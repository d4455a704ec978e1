package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// IntnFunc returns a uniformly distributed int in [0, n). *rand.Rand.Intn
// satisfies it.
type IntnFunc func(n int) int

// Jitter wraps another limiter and widens the window by a fresh uniform
// draw in [0, seconds] on every call, leaving identifier and limit
// untouched. Randomizing the effective window desynchronizes expiry across
// identifiers that started in lockstep, e.g. after a deploy rollout.
//
// The draw is re-rolled per call rather than pinned per identifier, so the
// effective window length varies call to call for the same identifier. That
// is a deliberate tradeoff favoring simplicity over per-identifier window
// stability.
type Jitter struct {
	next    Limiter
	seconds int

	mu   sync.Mutex
	intn IntnFunc
}

// NewJitter creates a jittered wrapper around next with its own seeded
// random source. A seconds value <= 0 disables jitter.
func NewJitter(next Limiter, seconds int) *Jitter {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return NewJitterWithSource(next, seconds, rng.Intn)
}

// NewJitterWithSource is NewJitter with an injected random source, so tests
// can pin the draw.
func NewJitterWithSource(next Limiter, seconds int, intn IntnFunc) *Jitter {
	return &Jitter{next: next, seconds: seconds, intn: intn}
}

func (l *Jitter) Check(ctx context.Context, identifier string, limit int, window time.Duration) (Decision, error) {
	if l.seconds > 0 {
		l.mu.Lock()
		draw := l.intn(l.seconds + 1)
		l.mu.Unlock()

		window += time.Duration(draw) * time.Second
	}

	return l.next.Check(ctx, identifier, limit, window)
}
