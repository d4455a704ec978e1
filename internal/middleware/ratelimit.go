package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
	"github.com/jagaleanoob/fast-limiter/internal/gate"
)

// IdentifierFunc derives the rate limit identifier for a request. Returning
// an empty string signals a usage error, answered with 422 rather than a
// deny.
type IdentifierFunc func(ctx huma.Context) string

// DefaultIdentifier keys requests by client IP plus the operation's route
// template, so each client gets an independent budget per route.
func DefaultIdentifier(ctx huma.Context) string {
	path := ctx.URL().Path
	if op := ctx.Operation(); op != nil {
		path = op.Path
	}

	return clientIP(ctx) + path
}

// RateLimit returns a Huma middleware that admits requests through the gate.
// A nil identify falls back to DefaultIdentifier; a nil events publisher
// disables deny event publishing.
func RateLimit(
	api huma.API,
	g *gate.Gate,
	identify IdentifierFunc,
	events *analytics.Publisher,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	if identify == nil {
		identify = DefaultIdentifier
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		identifier := identify(ctx)

		err := g.Admit(ctx.Context(), identifier)
		if err == nil {
			next(ctx)

			return
		}

		var exceeded *gate.LimitExceededError

		switch {
		case errors.As(err, &exceeded):
			handleDenied(api, ctx, g, identifier, exceeded, events, logger)
		case errors.Is(err, gate.ErrMissingIdentifier):
			logger.Error("no rate limit identifier for request",
				zap.String("path", ctx.URL().Path),
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnprocessableEntity,
				"unable to identify client for rate limiting", err)
		default:
			logger.Error("rate limit check failed",
				zap.String("path", ctx.URL().Path),
				zap.Error(err),
			)
			_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable,
				"rate limiter unavailable", err)
		}
	}
}

func handleDenied(
	api huma.API,
	ctx huma.Context,
	g *gate.Gate,
	identifier string,
	exceeded *gate.LimitExceededError,
	events *analytics.Publisher,
	logger *zap.Logger,
) {
	retryAfter := exceeded.RetryAfterSeconds()

	logger.Warn("rate limit exceeded",
		zap.String("identifier", identifier),
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.URL().Path),
		zap.Int("retryAfterSeconds", retryAfter),
	)

	if events != nil {
		event := &analytics.DeniedEvent{
			ID:                uuid.NewString(),
			Identifier:        identifier,
			Path:              ctx.URL().Path,
			Method:            ctx.Method(),
			ClientIP:          clientIP(ctx),
			Limit:             g.Limit(),
			WindowSeconds:     int(g.Window() / time.Second),
			RetryAfterSeconds: retryAfter,
			DeniedAt:          time.Now().UTC(),
		}

		if err := events.PublishDenied(event); err != nil {
			logger.Error("failed to publish deny event",
				zap.String("identifier", identifier),
				zap.Error(err),
			)
		}
	}

	ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))
	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit exceeded, retry in %d seconds", retryAfter))
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	// X-Forwarded-For may contain multiple IPs; the first is the client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	host := ctx.Host()

	ip, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	return ip
}
