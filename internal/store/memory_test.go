package store_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
	"github.com/jagaleanoob/fast-limiter/internal/store"
)

func TestMemory_GetSet(t *testing.T) {
	t.Run("round-trips a value", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		err := s.Set(context.Background(), "k", "v", time.Minute)
		require.NoError(t, err)

		value, err := s.Get(context.Background(), "k")

		require.NoError(t, err)
		assert.Equal(t, "v", value)
	})

	t.Run("returns ErrNotFound for an absent key", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		value, err := s.Get(context.Background(), "missing")

		assert.Empty(t, value)
		assert.ErrorIs(t, err, ratelimit.ErrNotFound)
	})

	t.Run("overwrites an existing value", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		_ = s.Set(context.Background(), "k", "old", time.Minute)
		_ = s.Set(context.Background(), "k", "new", time.Minute)

		value, err := s.Get(context.Background(), "k")

		require.NoError(t, err)
		assert.Equal(t, "new", value)
	})

	t.Run("expires values after their ttl", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		err := s.Set(context.Background(), "k", "v", 50*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		_, err = s.Get(context.Background(), "k")

		assert.ErrorIs(t, err, ratelimit.ErrNotFound)
	})

	t.Run("keeps values without a ttl", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		err := s.Set(context.Background(), "k", "v", 0)
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		value, err := s.Get(context.Background(), "k")

		require.NoError(t, err)
		assert.Equal(t, "v", value)
	})
}

func TestMemory_Increment(t *testing.T) {
	t.Run("counts up from one", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		for want := int64(1); want <= 3; want++ {
			count, err := s.Increment(context.Background(), "k", time.Minute)

			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})

	t.Run("restarts an expired counter", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		_, _ = s.Increment(context.Background(), "k", 50*time.Millisecond)
		_, _ = s.Increment(context.Background(), "k", 50*time.Millisecond)

		time.Sleep(60 * time.Millisecond)

		count, err := s.Increment(context.Background(), "k", 50*time.Millisecond)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects a non-numeric value", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		_ = s.Set(context.Background(), "k", "not-a-number", time.Minute)

		_, err := s.Increment(context.Background(), "k", time.Minute)

		assert.Error(t, err)
	})

	t.Run("is safe under concurrent use", func(t *testing.T) {
		s := store.NewMemory()
		defer s.Close()

		const workers = 50

		var wg sync.WaitGroup

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, _ = s.Increment(context.Background(), "k", time.Minute)
			}()
		}

		wg.Wait()

		value, err := s.Get(context.Background(), "k")

		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(workers), value)
	})
}

func TestMemory_Close(t *testing.T) {
	s := store.NewMemory()

	s.Close()
	s.Close() // idempotent
}
