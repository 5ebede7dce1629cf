package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middlewares.RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, platformerrors.RequestIDFromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middlewares.RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(middlewares.RequestIDHeader))

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(middlewares.RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middlewares.CORS())
	engine.POST("/v1/ai/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/v1/ai/chat", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func newLimitedEngine(t *testing.T, perMinute float64, burst int) *gin.Engine {
	t.Helper()
	limiter, err := middlewares.NewRateLimiter(&config.Config{
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
		RateLimitCacheSize: 16,
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-Test-User"))
		c.Next()
	})
	engine.Use(limiter.Middleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func get(engine *gin.Engine, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_PerPrincipal(t *testing.T) {
	engine := newLimitedEngine(t, 1, 2)

	assert.Equal(t, http.StatusOK, get(engine, "alice").Code)
	assert.Equal(t, http.StatusOK, get(engine, "alice").Code)

	rec := get(engine, "alice")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited_error")

	assert.Equal(t, http.StatusOK, get(engine, "bob").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	engine := newLimitedEngine(t, 0, 1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(engine, "alice").Code)
	}
}
