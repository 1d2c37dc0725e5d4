//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStores(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("idempotency mark, release and remark", func(t *testing.T) {
		store := NewRedisIdempotencyStore(client, "test:")
		key := uuid.NewString()

		isNew, err := store.MarkProcessed(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.False(t, isNew)

		require.NoError(t, store.Release(ctx, key))
		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("activity round trip with retention", func(t *testing.T) {
		tracker := NewRedisActivityTracker(client, time.Hour)
		userID := uuid.New()
		at := time.UnixMilli(time.Now().UnixMilli())

		_, ok, err := tracker.LastActivity(ctx, userID)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, tracker.Touch(ctx, userID, at))
		last, ok, err := tracker.LastActivity(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, at.Equal(last))

		ttl, err := client.TTL(ctx, activityPrefix+userID.String()).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
	})
}
