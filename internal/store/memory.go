package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
)

const defaultJanitorInterval = time.Minute

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process implementation of ratelimit.Store scoped to the
// instance's lifetime. Expired entries are dropped lazily on read and swept
// periodically by a background janitor so idle identifiers do not accumulate.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	done    chan struct{}
	closed  bool
}

// NewMemory creates an in-memory store and starts its janitor goroutine.
// Call Close to stop it.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}

	go m.janitor(defaultJanitorInterval)

	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", ratelimit.ErrNotFound
	}

	if entry.expired(time.Now()) {
		delete(m.entries, key)

		return "", ratelimit.ErrNotFound
	}

	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.entries[key] = entry

	return nil
}

// Increment atomically adds one to the counter stored at key, restarting at
// 1 when the key is absent or expired, and refreshes its TTL.
func (m *Memory) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	var count int64

	if entry, ok := m.entries[key]; ok && !entry.expired(now) {
		prev, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, err
		}

		count = prev
	}

	count++

	entry := memoryEntry{value: strconv.FormatInt(count, 10)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	m.entries[key] = entry

	return count, nil
}

// Close stops the janitor goroutine.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

var (
	_ ratelimit.Store       = (*Memory)(nil)
	_ ratelimit.Incrementer = (*Memory)(nil)
)
