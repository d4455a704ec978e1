package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TokenBucket models a capacity-bounded reservoir per identifier that
// refills continuously at limit/window tokens per second and drains one
// token per admitted request. Between calls the token level may be
// fractional.
//
// State lives in the Store under "bucket:<identifier>" (token level) and
// "last_update:<identifier>" (refill timestamp), both with a TTL of twice
// the window so infrequent callers get slack before passive expiry.
type TokenBucket struct {
	store    Store
	capacity float64
	locks    keyedMutex
}

// NewTokenBucket creates a token bucket limiter on top of store. A capacity
// of zero (or less) means each check uses its requests limit as the bucket
// capacity.
func NewTokenBucket(store Store, capacity float64) *TokenBucket {
	return &TokenBucket{store: store, capacity: capacity}
}

func (l *TokenBucket) Check(ctx context.Context, identifier string, limit int, window time.Duration) (Decision, error) {
	bucketKey := "bucket:" + identifier
	lastKey := "last_update:" + identifier

	refillRate := float64(limit) / window.Seconds()

	capacity := l.capacity
	if capacity <= 0 {
		capacity = float64(limit)
	}

	ttl := 2 * window

	mu := l.locks.lock(identifier)
	defer mu.Unlock()

	now := time.Now()

	tokens, lastUpdate, err := l.load(ctx, bucketKey, lastKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// First sight of this identifier: the request itself consumes
			// one token immediately.
			if err := l.store.Set(ctx, bucketKey, formatTokens(capacity-1), ttl); err != nil {
				return Decision{}, err
			}

			if err := l.store.Set(ctx, lastKey, formatUnixNano(now), ttl); err != nil {
				return Decision{}, err
			}

			return Decision{Allowed: true}, nil
		}

		return Decision{}, err
	}

	elapsed := now.Sub(lastUpdate).Seconds()
	newTokens := math.Min(tokens+elapsed*refillRate, capacity)

	if newTokens >= 1 {
		newTokens--

		if err := l.store.Set(ctx, bucketKey, formatTokens(newTokens), ttl); err != nil {
			return Decision{}, err
		}

		if err := l.store.Set(ctx, lastKey, formatUnixNano(now), ttl); err != nil {
			return Decision{}, err
		}

		return Decision{Allowed: true}, nil
	}

	// On deny only the timestamp is persisted, never the recomputed token
	// level. The next check refills from the old stored level and this new
	// timestamp, which under-refills under sustained pressure. Kept exactly
	// as specified; see DESIGN.md before changing.
	if err := l.store.Set(ctx, lastKey, formatUnixNano(now), ttl); err != nil {
		return Decision{}, err
	}

	untilNextToken := (1 - newTokens) / refillRate

	seconds := int(math.Round(untilNextToken))
	if seconds < 1 {
		seconds = 1
	}

	return Decision{Allowed: false, RetryAfter: time.Duration(seconds) * time.Second}, nil
}

func (l *TokenBucket) load(ctx context.Context, bucketKey, lastKey string) (float64, time.Time, error) {
	rawTokens, err := l.store.Get(ctx, bucketKey)
	if err != nil {
		return 0, time.Time{}, err
	}

	rawLast, err := l.store.Get(ctx, lastKey)
	if err != nil {
		return 0, time.Time{}, err
	}

	tokens, err := strconv.ParseFloat(rawTokens, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse token level: %w", err)
	}

	lastUpdate, err := parseUnixNano(rawLast)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse last update: %w", err)
	}

	return tokens, lastUpdate, nil
}

func formatTokens(tokens float64) string {
	return strconv.FormatFloat(tokens, 'f', -1, 64)
}
