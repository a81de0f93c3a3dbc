package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/resort-quote/internal/auth"
	"github.com/noah-isme/resort-quote/internal/config"
	"github.com/noah-isme/resort-quote/internal/health"
	"github.com/noah-isme/resort-quote/internal/obs"
	"github.com/noah-isme/resort-quote/internal/quoting"
	"github.com/noah-isme/resort-quote/internal/ratelimit"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

const applicationName = "resort-quote-api"

// Dependencies enumerates the services shared by the API process. DB and Redis are optional: without a
// database the reference data comes from a fixture file, and without Redis the snapshot cache is skipped
// and rate limits are kept in process.
type Dependencies struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Snapshots *refdata.Provider
	Quotes    *quoting.Service
	Verifier  *auth.Verifier
	Limiter   ratelimit.Allower

	logger  zerolog.Logger
	closers []func()
}

// New connects to the configured backing services and builds the quoting stack on top of them.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	d := &Dependencies{logger: logger}

	if cfg.DatabaseURL != "" {
		if cfg.RefdataAutoMigrate {
			if err := refdata.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.DB = pool
		d.closers = append(d.closers, pool.Close)
	}

	if cfg.RedisURL != "" {
		rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.ObsEnablePrometheus, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = rdb
		d.closers = append(d.closers, func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
	}

	var source refdata.Source
	switch {
	case d.DB != nil:
		source = refdata.PostgresSource{DB: d.DB}
	case cfg.RefdataFixture != "":
		source = refdata.FileSource{Path: cfg.RefdataFixture}
	default:
		d.Close()
		return nil, errors.New("app: no reference data source configured")
	}

	var cache *refdata.Cache
	if d.Redis != nil {
		cache = refdata.NewCache(d.Redis, cfg.SnapshotCacheTTL)
	}
	provider, err := refdata.NewProvider(refdata.ProviderConfig{
		Source:  source,
		Cache:   cache,
		Refresh: cfg.SnapshotRefresh,
		Logger:  logger.With().Str("component", "refdata").Logger(),
		Observe: obs.ObserveRefdataLoad,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Snapshots = provider

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: cfg.JWTClockSkew,
		TokenTTL:  cfg.AgentTokenTTL,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Verifier = verifier

	if d.Redis != nil {
		d.Limiter = ratelimit.RedisLimiter{Client: d.Redis, Prefix: "resort-quote:ratelimit:"}
	} else {
		d.Limiter = ratelimit.NewMemoryLimiter("resort-quote")
	}

	quotes, err := quoting.NewService(quoting.Config{
		Snapshots:            provider,
		DefaultRates:         cfg.QuoteDefaultRates,
		PassThroughExemptAge: cfg.QuotePassThroughExemptAge,
		ValidityDays:         cfg.QuoteValidityDays,
		Logger:               logger.With().Str("component", "quoting").Logger(),
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Quotes = quotes

	return d, nil
}

// NewPool opens a pgx pool with query tracing enabled and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens an instrumented Redis client and verifies connectivity.
func NewRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ReadinessChecks returns one probe per configured dependency.
func (d *Dependencies) ReadinessChecks() map[string]health.Check {
	checks := map[string]health.Check{
		"refdata": func(ctx context.Context) error {
			_, err := d.Snapshots.Snapshot(ctx)
			return err
		},
	}
	if d.DB != nil {
		checks["db"] = d.DB.Ping
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases backing connections in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
