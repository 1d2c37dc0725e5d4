package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Stores bundles the idempotency store and activity tracker chosen at startup
type Stores struct {
	Idempotency shared.IdempotencyStore
	Activity    identity.ActivityTracker
	Backend     string
	client      *redis.Client
}

// Close releases the stores and the Redis connection, if any
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Client returns the Redis client, or nil for in-memory stores
func (s *Stores) Client() *redis.Client {
	return s.client
}

// StoreFactory picks Redis or in-memory stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	activityRetention     time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a factory. Activity keys are retained for twice the
// session idle timeout, long enough for every idle check to see them.
func NewStoreFactory(cfg config.RedisConfig, idleTimeout time.Duration, opts ...StoreFactoryOption) *StoreFactory {
	retention := 2 * idleTimeout
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	f := &StoreFactory{
		redisConfig:           cfg,
		activityRetention:     retention,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory returns process-local stores
func (f *StoreFactory) InMemory() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Activity:    NewInMemoryActivityTracker(),
		Backend:     "memory",
	}
}

// FromClient builds Redis-backed stores on an existing client
func (f *StoreFactory) FromClient(client *redis.Client) *Stores {
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Activity:    NewRedisActivityTracker(client, f.activityRetention),
		Backend:     "redis",
		client:      client,
	}
}

// Create connects to Redis when enabled and falls back to in-memory stores
// when Redis is disabled, or unreachable and fallback is allowed.
func (f *StoreFactory) Create(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory stores")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis stores", zap.String("addr", f.redisConfig.Addr()))
		return f.FromClient(client), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Redelivered events may be handled once per instance.",
		zap.Error(err),
	)
	return f.InMemory(), nil
}
