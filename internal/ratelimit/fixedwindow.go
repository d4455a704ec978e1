package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FixedWindow counts requests per identifier inside a window that resets
// wholesale once expired. Windows slide forward: a fresh window starts at the
// first request after expiry, not at a calendar boundary. Bursts of up to 2x
// the limit across a window boundary are an accepted property of the
// algorithm.
//
// State lives in the Store under "count:<identifier>" and
// "start:<identifier>", with a TTL of twice the window as passive cleanup for
// identifiers that stop calling.
type FixedWindow struct {
	store Store
	locks keyedMutex
}

// NewFixedWindow creates a fixed window counter limiter on top of store.
func NewFixedWindow(store Store) *FixedWindow {
	return &FixedWindow{store: store}
}

func (l *FixedWindow) Check(ctx context.Context, identifier string, limit int, window time.Duration) (Decision, error) {
	countKey := "count:" + identifier
	startKey := "start:" + identifier

	// Serializes the read-modify-write per identifier within this process.
	// Cross-process writers against a shared backend remain best-effort,
	// except for the atomic increment path below.
	mu := l.locks.lock(identifier)
	defer mu.Unlock()

	now := time.Now()

	count, start, err := l.load(ctx, countKey, startKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return l.reset(ctx, countKey, startKey, now, window)
		}

		return Decision{}, err
	}

	if now.Sub(start) > window {
		// Window expired: replace the record, fresh window starts now.
		return l.reset(ctx, countKey, startKey, now, window)
	}

	if count >= int64(limit) {
		retry := start.Add(window).Sub(now).Truncate(time.Second)
		if retry < time.Second {
			retry = time.Second
		}

		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	if err := l.increment(ctx, countKey, count, window); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true}, nil
}

// load reads the window record. ErrNotFound means no usable record exists.
func (l *FixedWindow) load(ctx context.Context, countKey, startKey string) (int64, time.Time, error) {
	rawCount, err := l.store.Get(ctx, countKey)
	if err != nil {
		return 0, time.Time{}, err
	}

	rawStart, err := l.store.Get(ctx, startKey)
	if err != nil {
		return 0, time.Time{}, err
	}

	count, err := strconv.ParseInt(rawCount, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse window count: %w", err)
	}

	start, err := parseUnixNano(rawStart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse window start: %w", err)
	}

	return count, start, nil
}

func (l *FixedWindow) reset(ctx context.Context, countKey, startKey string, now time.Time, window time.Duration) (Decision, error) {
	ttl := 2 * window

	if err := l.store.Set(ctx, countKey, "1", ttl); err != nil {
		return Decision{}, err
	}

	if err := l.store.Set(ctx, startKey, formatUnixNano(now), ttl); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true}, nil
}

func (l *FixedWindow) increment(ctx context.Context, countKey string, count int64, window time.Duration) error {
	ttl := 2 * window

	if inc, ok := l.store.(Incrementer); ok {
		_, err := inc.Increment(ctx, countKey, ttl)

		return err
	}

	return l.store.Set(ctx, countKey, strconv.FormatInt(count+1, 10), ttl)
}

func formatUnixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(s string) (time.Time, error) {
	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(0, nanos), nil
}
