package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/config"
)

const (
	idempotencyPrefix = "sca:event:idempotency:"
	activityPrefix    = "sca:user:activity:"
)

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// RedisIdempotencyStore shares handled event ids across instances using SETNX
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore wraps client. An empty prefix selects the default.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = idempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed sets the key with ttl only if it is absent
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release event key: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by whoever created it
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

// RedisActivityTracker stores each user's last activity as unix milliseconds.
// Keys expire after retention so inactive users do not accumulate.
type RedisActivityTracker struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisActivityTracker creates a tracker whose keys live for retention
func NewRedisActivityTracker(client redis.UniversalClient, retention time.Duration) *RedisActivityTracker {
	return &RedisActivityTracker{client: client, retention: retention}
}

func (t *RedisActivityTracker) LastActivity(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	raw, err := t.client.Get(ctx, activityPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read activity: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt activity value %q: %w", raw, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (t *RedisActivityTracker) Touch(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := t.client.Set(ctx, activityPrefix+userID.String(), at.UnixMilli(), t.retention).Err()
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

var (
	_ shared.IdempotencyStore  = (*RedisIdempotencyStore)(nil)
	_ identity.ActivityTracker = (*RedisActivityTracker)(nil)
)
