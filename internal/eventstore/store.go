package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving build events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error

	// GetByBuildID retrieves all events for a specific build in insertion order.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Builds returns the most recent build IDs, newest first.
	Builds(ctx context.Context, limit int) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
