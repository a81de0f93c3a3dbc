package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/common"
)

func TestMemoryLimiterAllow(t *testing.T) {
	limiter := NewMemoryLimiter("test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "agent:a1", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, 3-(i+1), remaining)
		require.True(t, reset.After(time.Now()))
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "agent:a1", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	allowed, _, _, err = limiter.Allow(ctx, "agent:a2", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed, "keys are counted independently")
}

func TestMemoryLimiterDisabledWhenMaxIsZero(t *testing.T) {
	limiter := NewMemoryLimiter("test")
	for i := 0; i < 10; i++ {
		allowed, _, _, err := limiter.Allow(context.Background(), "k", time.Minute, 0)
		require.NoError(t, err)
		require.True(t, allowed)
	}
}

func TestAgentOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", nil)
	req.RemoteAddr = "203.0.113.9:5123"
	require.Equal(t, "ip:203.0.113.9", AgentOrIP(req))

	req = req.WithContext(common.WithAgent(req.Context(), common.AgentIdentity{ID: "agent-42"}))
	require.Equal(t, "agent:agent-42", AgentOrIP(req))
}

func TestMiddlewareRejectsWithJSONBody(t *testing.T) {
	handler := Handler{
		Limiter: NewMemoryLimiter("mw"),
		Config:  Config{Key: AgentOrIP, Window: time.Minute, Max: 1},
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/calculate", nil)
	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}
