// Package gate is the admission seam between a host request-handling
// framework and the rate limiting algorithms. It turns limiter decisions
// into three distinguishable outcomes: admitted, denied with a retry-after
// estimate, and backend failure handled per the configured policy.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
	"github.com/jagaleanoob/fast-limiter/internal/store"
)

// FailurePolicy controls what happens when the storage backend errors
// during a check. There is no default: admitting on failure trades safety
// for availability and denying trades the other way, so the choice must be
// made explicitly.
type FailurePolicy int

const (
	failurePolicyUnset FailurePolicy = iota
	// FailOpen admits requests when the backend is unavailable.
	FailOpen
	// FailClosed surfaces the backend error, denying the request.
	FailClosed
)

// Config holds the gate's construction parameters. It is immutable after New.
type Config struct {
	// Limit is the maximum number of admitted requests per window.
	Limit int
	// Window is the time span the limit is measured over.
	Window time.Duration
	// Limiter is the strategy consulted per request. When nil, a fixed
	// window counter over a fresh in-process store is used.
	Limiter ratelimit.Limiter
	// OnFailure is required; see FailurePolicy.
	OnFailure FailurePolicy
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Gate gates request throughput per client identifier.
type Gate struct {
	limiter   ratelimit.Limiter
	limit     int
	window    time.Duration
	onFailure FailurePolicy
	logger    *zap.Logger
}

// New validates cfg and creates a gate.
func New(cfg Config) (*Gate, error) {
	if cfg.Limit <= 0 {
		return nil, errors.New("gate: requests limit must be positive")
	}

	if cfg.Window <= 0 {
		return nil, errors.New("gate: window must be positive")
	}

	if cfg.OnFailure != FailOpen && cfg.OnFailure != FailClosed {
		return nil, errors.New("gate: failure policy must be FailOpen or FailClosed")
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewFixedWindow(store.NewMemory())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gate{
		limiter:   limiter,
		limit:     cfg.Limit,
		window:    cfg.Window,
		onFailure: cfg.OnFailure,
		logger:    logger,
	}, nil
}

// Limit returns the configured requests limit.
func (g *Gate) Limit() int { return g.limit }

// Window returns the configured window.
func (g *Gate) Window() time.Duration { return g.window }

// Admit checks whether a request from identifier should proceed. It returns
// nil when admitted, a *LimitExceededError when denied, ErrMissingIdentifier
// for an empty identifier, and the backend error when the check fails under
// FailClosed. Under FailOpen a backend failure is logged and the request is
// admitted.
func (g *Gate) Admit(ctx context.Context, identifier string) error {
	if identifier == "" {
		return ErrMissingIdentifier
	}

	decision, err := g.limiter.Check(ctx, identifier, g.limit, g.window)
	if err != nil {
		if g.onFailure == FailOpen {
			g.logger.Warn("rate limit backend failed, admitting request",
				zap.String("identifier", identifier),
				zap.Error(err),
			)

			return nil
		}

		return fmt.Errorf("gate: rate limit check: %w", err)
	}

	if !decision.Allowed {
		return &LimitExceededError{RetryAfter: decision.RetryAfter}
	}

	return nil
}

// Do admits the request and then invokes op unchanged, returning its result.
// Context-aware operations may block or suspend however they like; the gate
// only decides whether they run.
func (g *Gate) Do(ctx context.Context, identifier string, op func(context.Context) error) error {
	if err := g.Admit(ctx, identifier); err != nil {
		return err
	}

	return op(ctx)
}
