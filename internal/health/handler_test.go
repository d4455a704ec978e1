package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagaleanoob/fast-limiter/internal/health"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) Ping(_ context.Context) error {
	return s.err
}

func TestHandler_Check(t *testing.T) {
	t.Run("reports in-process without a backend", func(t *testing.T) {
		h := health.NewHandler(nil)

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "in-process", resp.Body.Backend)
	})

	t.Run("reports healthy when the backend responds", func(t *testing.T) {
		h := health.NewHandler(&stubChecker{})

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Backend)
	})

	t.Run("degrades when the backend is unreachable", func(t *testing.T) {
		h := health.NewHandler(&stubChecker{err: errors.New("connection refused")})

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "unhealthy", resp.Body.Backend)
	})
}
