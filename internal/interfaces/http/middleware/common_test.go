package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCORSRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORSWithConfig(t *testing.T) {
	whitelist := DefaultCORSConfig()
	whitelist.AllowOrigins = []string{"https://portal.sca.gov.pg", "http://localhost:3000"}

	wildcard := DefaultCORSConfig()
	wildcard.AllowOrigins = []string{"*"}

	tests := []struct {
		name            string
		cfg             CORSConfig
		method          string
		origin          string
		wantStatus      int
		wantOrigin      string
		wantCredentials string
	}{
		{name: "default rejects cross origin", cfg: DefaultCORSConfig(), method: "GET", origin: "https://evil.example", wantStatus: 200},
		{name: "default allows same origin", cfg: DefaultCORSConfig(), method: "GET", wantStatus: 200},
		{name: "default preflight is 204 without headers", cfg: DefaultCORSConfig(), method: "OPTIONS", origin: "https://evil.example", wantStatus: 204},
		{name: "whitelisted origin", cfg: whitelist, method: "GET", origin: "http://localhost:3000", wantStatus: 200, wantOrigin: "http://localhost:3000", wantCredentials: "true"},
		{name: "unlisted origin", cfg: whitelist, method: "GET", origin: "https://other.example", wantStatus: 200},
		{name: "whitelisted preflight", cfg: whitelist, method: "OPTIONS", origin: "https://portal.sca.gov.pg", wantStatus: 204, wantOrigin: "https://portal.sca.gov.pg", wantCredentials: "true"},
		{name: "wildcard never sends credentials", cfg: wildcard, method: "GET", origin: "https://any.example", wantStatus: 200, wantOrigin: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			newCORSRouter(tt.cfg).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}

	t.Run("max age in seconds", func(t *testing.T) {
		cfg := whitelist
		cfg.MaxAge = 90 * time.Minute
		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		newCORSRouter(cfg).ServeHTTP(w, req)

		assert.Equal(t, "5400", w.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})
}

func TestRequestID(t *testing.T) {
	var seenCtx, seenGin string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		seenCtx = logger.RequestID(c.Request.Context())
		seenGin = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, seenCtx)
		assert.Equal(t, id, seenGin)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "trace-me")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "trace-me", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "trace-me", seenCtx)
	})

	t.Run("truncates long ids", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 500))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Len(t, w.Header().Get(RequestIDHeader), MaxRequestIDLength)
	})
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
