package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Teamie71/folioo-server/internal/config"
)

func limiterRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewRateLimiter(cfg).Handler())
	r.GET("/auth/login", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRateLimiterBurstFromConfig(t *testing.T) {
	r := limiterRouter(t, config.Config{RateLimitRPM: 60, RateLimitBurst: 3})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimiterExemptsHealth(t *testing.T) {
	r := limiterRouter(t, config.Config{RateLimitRPM: 60, RateLimitBurst: 1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Probes stay reachable after the client budget is spent.
	for i := 0; i < 5; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	require.Nil(t, NewRateLimiter(config.Config{RateLimitRPM: 0}))

	// A nil limiter still yields a pass-through handler.
	gin.SetMode(gin.TestMode)
	var limiter *RateLimiter
	r := gin.New()
	r.Use(limiter.Handler())
	r.GET("/auth/login", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiterDerivedBurstAndIdleEviction(t *testing.T) {
	rl := NewRateLimiter(config.Config{RateLimitRPM: 600, RateLimitIdleWindow: time.Minute})
	require.NotNil(t, rl)
	require.Equal(t, 60, rl.burst)
	require.Equal(t, time.Minute, rl.window)

	rl.getLimiter("10.0.0.1")
	require.Len(t, rl.clients, 1)

	// Idle clients are evicted once the window elapses.
	rl.mu.Lock()
	rl.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()
	rl.getLimiter("10.0.0.2")
	require.Len(t, rl.clients, 1)
	require.Contains(t, rl.clients, "10.0.0.2")
}
