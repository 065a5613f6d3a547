package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.FailNow(t, "span not found", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanPerRoute(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "fulfildesk-test"}))
	router.GET("/orders/:id", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	findSpan(t, sr, "GET /orders/:id")
}

func TestSpanEnricher(t *testing.T) {
	sr := setupTestTracer(t)
	userID := uuid.New()

	router := gin.New()
	router.Use(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "fulfildesk-test"}),
		RequestID(),
		func(c *gin.Context) {
			c.Set(PrincipalKey, identity.NewPrincipal(userID, identity.Staff{}))
			c.Next()
		},
		SpanEnricher(),
	)
	router.GET("/ok", okHandler)
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	ok := findSpan(t, sr, "GET /ok")
	v, found := spanAttr(ok, "request_id")
	require.True(t, found)
	assert.Equal(t, "req-42", v.AsString())
	v, found = spanAttr(ok, "user_id")
	require.True(t, found)
	assert.Equal(t, userID.String(), v.AsString())
	v, _ = spanAttr(ok, "role")
	assert.Equal(t, "staff", v.AsString())

	assert.Equal(t, codes.Error, findSpan(t, sr, "GET /fail").Status().Code)
	assert.NotEqual(t, codes.Error, findSpan(t, sr, "GET /missing").Status().Code)
}
