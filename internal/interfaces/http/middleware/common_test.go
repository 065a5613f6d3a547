package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestCORSWithConfig(t *testing.T) {
	t.Run("empty whitelist sets no headers", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSWithConfig(DefaultCORSConfig()))
		router.GET("/test", okHandler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://malicious.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allows listed origin with credentials", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSWithConfig(CORSFromConfig(config.HTTPConfig{
			CORSAllowOrigins: []string{"https://desk.example", "https://admin.example"},
		})))
		router.GET("/test", okHandler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://admin.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), IdempotencyKeyHeader)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("wildcard never allows credentials", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSWithConfig(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}))
		router.GET("/test", okHandler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://any.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight answers 204 without reaching routes", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSWithConfig(CORSConfig{AllowOrigins: []string{"https://desk.example"}, AllowMethods: []string{"GET", "POST"}}))

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
		req.Header.Set("Origin", "https://desk.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestRequestID(t *testing.T) {
	var ctxID string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		ctxID = logger.GetRequestID(c.Request.Context())
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
		assert.Equal(t, id, ctxID)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-abc", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-abc", ctxID)
	})
}

func TestSecureWithConfig(t *testing.T) {
	router := gin.New()
	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	router.Use(SecureWithConfig(cfg))
	router.GET("/test", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	router := gin.New()
	router.Use(Timeout(50 * time.Millisecond))
	router.GET("/test", func(c *gin.Context) {
		deadline, hasDeadline = c.Request.Context().Deadline()
		select {
		case <-c.Request.Context().Done():
			c.String(http.StatusGatewayTimeout, context.DeadlineExceeded.Error())
		case <-time.After(time.Second):
			c.String(http.StatusOK, "late")
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now(), deadline, time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
