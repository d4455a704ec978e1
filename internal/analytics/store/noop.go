package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op deny event store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveDenied(_ context.Context, event *analytics.DeniedEvent) error {
	n.logger.Info("deny event received",
		zap.String("identifier", event.Identifier),
		zap.String("path", event.Path),
		zap.Int("retryAfterSeconds", event.RetryAfterSeconds),
		zap.Time("deniedAt", event.DeniedAt),
	)

	return nil
}
