package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	RefdataFixture     string
	RefdataAutoMigrate bool
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	JWTClockSkew       time.Duration
	AgentTokenTTL      time.Duration
	CORSAllowedOrigins []string

	QuoteDefaultCurrency      string
	QuoteDefaultRates         money.RateTable
	QuotePassThroughExemptAge *int
	QuoteValidityDays         int
	SnapshotCacheTTL          time.Duration
	SnapshotRefresh           time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
	BodyLimitBytes  int64

	ObsLogFormat        string
	ObsLogLevel         string
	ObsMetricsNamespace string
	ObsMetricsBuckets   string
	ObsEnablePrometheus bool
	ObsEnableTracing    bool
	ObsTracingExporter  string
	ObsOTLPEndpoint     string
	ObsSamplingRatio    float64
	ObsEnablePprof      bool
	PprofUser           string
	PprofPass           string

	SecureHeaders bool
	SecureHSTS    bool

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HealthReadyTimeout time.Duration
	ShutdownDrain      time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	rates, err := money.ParseRateTable(valueOrDefault(k.String("QUOTE_DEFAULT_RATES"), "USD:1"))
	if err != nil {
		return nil, fmt.Errorf("QUOTE_DEFAULT_RATES: %w", err)
	}
	exemptAge, err := parseOptionalInt(k.String("QUOTE_PASS_THROUGH_EXEMPT_AGE"))
	if err != nil {
		return nil, fmt.Errorf("QUOTE_PASS_THROUGH_EXEMPT_AGE: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		RefdataFixture:     strings.TrimSpace(k.String("REFDATA_FIXTURE")),
		RefdataAutoMigrate: parseBoolDefault(k.String("REFDATA_AUTO_MIGRATE"), false),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "resort-quote"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "resort-quote-agents"),
		JWTClockSkew:       parseDuration(k.String("JWT_CLOCK_SKEW"), "30s"),
		AgentTokenTTL:      parseDuration(k.String("AGENT_TOKEN_TTL"), "12h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		QuoteDefaultCurrency:      money.NormalizeCurrency(valueOrDefault(k.String("QUOTE_DEFAULT_CURRENCY"), "USD")),
		QuoteDefaultRates:         rates,
		QuotePassThroughExemptAge: exemptAge,
		QuoteValidityDays:         parseInt(k.String("QUOTE_VALIDITY_DAYS"), 14),
		SnapshotCacheTTL:          parseDuration(k.String("SNAPSHOT_CACHE_TTL"), "10m"),
		SnapshotRefresh:           parseDuration(k.String("SNAPSHOT_REFRESH"), "1m"),

		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 256*1024)),

		ObsLogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		ObsLogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		ObsMetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "resort_quote"),
		ObsMetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		ObsEnablePrometheus: parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		ObsEnableTracing:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		ObsTracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		ObsOTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		ObsSamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		ObsEnablePprof:      parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:           strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:           strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),

		HTTPReadTimeout:    parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
		HTTPWriteTimeout:   parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "15s"),
		HealthReadyTimeout: parseDuration(k.String("HEALTH_READY_TIMEOUT"), "500ms"),
		ShutdownDrain:      parseDuration(k.String("SHUTDOWN_DRAIN"), "0s"),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}
	cfg.SecureHeaders = parseBoolDefault(k.String("SECURE_HEADERS_ENABLED"), true)
	cfg.SecureHSTS = parseBoolDefault(k.String("SECURE_HSTS_ENABLED"), cfg.AppEnv == "production")

	if cfg.DatabaseURL == "" && cfg.RefdataFixture == "" {
		return nil, errors.New("DATABASE_URL or REFDATA_FIXTURE is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if _, ok := cfg.QuoteDefaultRates[cfg.QuoteDefaultCurrency]; !ok {
		cfg.QuoteDefaultRates[cfg.QuoteDefaultCurrency] = decimal.NewFromInt(1)
	}
	if cfg.QuoteValidityDays <= 0 {
		return nil, errors.New("QUOTE_VALIDITY_DAYS must be positive")
	}
	if cfg.ObsEnablePprof && cfg.IsProduction() && cfg.PprofUser == "" {
		return nil, errors.New("SECURE_PPROF_BASIC_AUTH_USER is required to expose pprof in production")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative, got %d", n)
	}
	return &n, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
