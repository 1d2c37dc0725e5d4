package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("no checks is healthy", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler("sca-registry", "test").Health)

		w := serve(r, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "sca-registry", data["name"])
		assert.NotEmpty(t, data["goVersion"])
		assert.Nil(t, data["checks"])
	})

	t.Run("all checks pass", func(t *testing.T) {
		h := NewHealthHandler("sca-registry", "test").
			AddCheck("database", ok).
			AddCheck("redis", ok)
		r := gin.New()
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, w.Code)
		checks := decodeResponse(t, w).Data.(map[string]any)["checks"].(map[string]any)
		assert.Equal(t, map[string]any{"database": "ok", "redis": "ok"}, checks)
	})

	t.Run("a failing check degrades", func(t *testing.T) {
		h := NewHealthHandler("sca-registry", "test").
			AddCheck("database", ok).
			AddCheck("storage", func(context.Context) error { return errors.New("bucket unreachable") })
		r := gin.New()
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "degraded", data["status"])
		checks := data["checks"].(map[string]any)
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "bucket unreachable", checks["storage"])
	})

	t.Run("checks see a deadline", func(t *testing.T) {
		var hadDeadline bool
		h := NewHealthHandler("sca-registry", "test").AddCheck("database", func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})
		r := gin.New()
		r.GET("/health", h.Health)

		serve(r, http.MethodGet, "/health", "")
		assert.True(t, hadDeadline)
	})
}
