package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/covenantlabs/azor-auth/pkg/httpx"
)

func TestLocalLimiterAllowsWithinBurst(t *testing.T) {
	limiter := httpx.NewLocalLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	})

	ctx := context.Background()
	for i := range 5 {
		decision, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d should be allowed", i)
	}

	decision, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestLocalLimiterIsolatesKeys(t *testing.T) {
	limiter := httpx.NewLocalLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	})

	ctx := context.Background()
	first, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	other, err := limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestRedisLimiterAllowsWithinBurst(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := httpx.NewRedisLimiter(client, "rl:test", httpx.RateLimitConfig{
		RequestsPerWindow: 3,
		Window:            time.Minute,
		Burst:             3,
	})

	ctx := context.Background()
	for i := range 3 {
		decision, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d should be allowed", i)
	}

	decision, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestRedisLimiterSharesBucketsAcrossClients(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}

	a := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	b := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	ctx := context.Background()
	first, err := httpx.NewRedisLimiter(a, "rl:test", cfg).Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	second, err := httpx.NewRedisLimiter(b, "rl:test", cfg).Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, second.Allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := httpx.NewLocalLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	})

	handler := httpx.RateLimitMiddleware(
		httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2},
		limiter,
		httpx.IPKeyExtractor,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)
	require.Equal(t, http.StatusOK, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareFailsOpenOnBackendError(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter := httpx.NewRedisLimiter(client, "rl:test", httpx.StrictLimit)
	srv.Close()

	handler := httpx.RateLimitMiddleware(httpx.StrictLimit, limiter, httpx.IPKeyExtractor)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	require.Equal(t, "192.0.2.1", httpx.IPKeyExtractor(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	require.Equal(t, "198.51.100.9", httpx.IPKeyExtractor(req))
}
