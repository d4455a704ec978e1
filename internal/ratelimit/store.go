package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when a key is absent or expired.
var ErrNotFound = errors.New("ratelimit: key not found")

// Store is the key/value storage backend limiters persist per-identifier
// state in. Values round-trip as strings on every backend. A ttl <= 0 stores
// the value without expiry; expired entries behave as absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Incrementer is an optional Store capability for backends with a native
// atomic add-one (a redis INCR, a postgres upsert). An expired or absent key
// restarts at 1. FixedWindow prefers this over a Get/Set pair for the
// in-window increment so concurrent writers in different processes cannot
// lose updates.
type Incrementer interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
