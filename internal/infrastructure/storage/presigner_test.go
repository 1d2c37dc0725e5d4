package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/scaregistry/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:       true,
		Endpoint:      "http://localhost:9000",
		Region:        "ap-southeast-2",
		Bucket:        "sca-attachments",
		AccessKeyID:   "test-key",
		SecretKey:     "test-secret",
		UsePathStyle:  true,
		PresignExpiry: 10 * time.Minute,
	}
}

func TestNewS3Presigner_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3Presigner(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3Presigner(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half a key pair", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.SecretKey = ""
		_, err := NewS3Presigner(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("defaults expiry", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PresignExpiry = 0
		p, err := NewS3Presigner(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, p.Expiry())
		assert.Equal(t, "sca-attachments", p.Bucket())
	})

	t.Run("options override configuration", func(t *testing.T) {
		p, err := NewS3Presigner(ctx, testStorageConfig(), WithExpiry(time.Minute), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, time.Minute, p.Expiry())
	})
}

func TestS3Presigner_PresignGet(t *testing.T) {
	p, err := NewS3Presigner(context.Background(), testStorageConfig())
	require.NoError(t, err)

	t.Run("signs a path-style URL", func(t *testing.T) {
		raw, err := p.PresignGet(context.Background(), "/licenses/42/permit.pdf")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "localhost:9000", u.Host)
		assert.Equal(t, "/sca-attachments/licenses/42/permit.pdf", u.Path)
		assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
		assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
		assert.Contains(t, u.Query().Get("X-Amz-Credential"), "test-key/")
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := p.PresignGet(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "object key is required")
	})
}
