package app

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resort-quote/internal/config"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/ratelimit"
)

func fixtureConfig() *config.Config {
	return &config.Config{
		RefdataFixture:    "../refdata/testdata/resorts.json",
		JWTSecret:         "secret",
		JWTIssuer:         "resort-quote",
		JWTAudience:       "resort-quote-agents",
		QuoteDefaultRates: money.RateTable{"USD": decimal.NewFromInt(1)},
		QuoteValidityDays: 14,
		SnapshotCacheTTL:  time.Minute,
		SnapshotRefresh:   time.Minute,
	}
}

func TestNewWithFixtureOnly(t *testing.T) {
	deps, err := New(context.Background(), fixtureConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	require.Nil(t, deps.DB)
	require.Nil(t, deps.Redis)
	require.IsType(t, &ratelimit.MemoryLimiter{}, deps.Limiter)

	checks := deps.ReadinessChecks()
	require.Len(t, checks, 1)
	require.NoError(t, checks["refdata"](context.Background()))

	snap, err := deps.Snapshots.Snapshot(context.Background())
	require.NoError(t, err)
	_, ok := snap.Resort("azure-atoll")
	require.True(t, ok)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := fixtureConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	deps, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.Redis)
	require.IsType(t, ratelimit.RedisLimiter{}, deps.Limiter)
	checks := deps.ReadinessChecks()
	require.Contains(t, checks, "redis")
	require.NoError(t, checks["redis"](context.Background()))
}

func TestNewRequiresSource(t *testing.T) {
	cfg := fixtureConfig()
	cfg.RefdataFixture = ""
	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
