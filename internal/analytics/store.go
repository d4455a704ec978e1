package analytics

import "context"

// Store defines the interface for persisting deny events.
type Store interface {
	SaveDenied(ctx context.Context, event *DeniedEvent) error
}
