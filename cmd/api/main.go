package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/resort-quote/internal/app"
	"github.com/noah-isme/resort-quote/internal/auth"
	"github.com/noah-isme/resort-quote/internal/common"
	"github.com/noah-isme/resort-quote/internal/config"
	"github.com/noah-isme/resort-quote/internal/health"
	"github.com/noah-isme/resort-quote/internal/obs"
	"github.com/noah-isme/resort-quote/internal/quoting"
	"github.com/noah-isme/resort-quote/internal/ratelimit"
	"github.com/noah-isme/resort-quote/internal/security"
)

const serviceName = "resort-quote-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.ObsLogFormat, cfg.ObsLogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.ObsMetricsNamespace, nil)

	tracing := cfg.ObsEnableTracing
	if tracing {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      cfg.ObsOTLPEndpoint,
			Exporter:      cfg.ObsTracingExporter,
			SamplingRatio: cfg.ObsSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracing = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()
	if _, err := deps.Snapshots.Snapshot(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial reference data load failed")
	}
	cancel()

	var handler http.Handler = newRouter(cfg, deps, logger, tracing)
	if tracing {
		handler = otelhttp.NewHandler(handler, serviceName)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	serve(srv, cfg, logger)
}

func newRouter(cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger, tracing bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestInfoMiddleware)
	if tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.ObsEnablePrometheus {
		metrics := obs.NewHTTPMetrics(cfg.ObsMetricsNamespace, obs.ParseBucketsCSV(cfg.ObsMetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:                cfg.SecureHeaders,
		EnableHSTS:            cfg.SecureHSTS,
		HSTSIncludeSubdomains: true,
		NoStore:               true,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.ObsEnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.ObsEnablePprof {
		r.Mount("/debug", basicAuth(middleware.Profiler(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Checks: deps.ReadinessChecks(), Timeout: cfg.HealthReadyTimeout}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	quotes := quoting.NewHandler(quoting.HandlerConfig{Service: deps.Quotes})
	limits := ratelimit.Handler{
		Limiter: deps.Limiter,
		Config:  ratelimit.Config{Key: ratelimit.AgentOrIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}
	r.Route("/api/v1/quotes", func(q chi.Router) {
		q.Use(auth.Middleware{Verifier: deps.Verifier}.RequireAgent)
		q.Use(limits.Middleware)
		q.Use(security.BodyLimit{Max: cfg.BodyLimitBytes, RequireJSON: true}.Middleware)
		quotes.Routes(q)
	})
	return r
}

// serve runs srv until it fails or SIGINT/SIGTERM arrives. On a signal the readiness probe flips first,
// then the server drains in-flight quotes.
func serve(srv *http.Server, cfg *config.Config, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		health.SetReady(false)
		time.Sleep(cfg.ShutdownDrain)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func basicAuth(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "profiler credentials required", nil)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
