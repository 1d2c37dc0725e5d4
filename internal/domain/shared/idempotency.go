package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers handled event IDs so that outbox redelivery does
// not refresh the same snapshot twice.
type IdempotencyStore interface {
	// MarkProcessed returns true when the key was newly recorded
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed delivery can be retried
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps keys for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
