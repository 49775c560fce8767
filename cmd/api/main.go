package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/app"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/resilience"
	"github.com/noah-isme/storefront/internal/security"
	"github.com/noah-isme/storefront/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		logger.Fatal().Err(err).Msg("register breaker metrics")
	}
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

	tracing := true
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   "storefront-api",
		Endpoint:      cfg.OTelEndpoint,
		Exporter:      cfg.OTelExporter,
		SamplingRatio: cfg.OTelSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		tracing = false
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := app.Open(startCtx, cfg, logger, app.Options{AppName: "storefront-api", Migrate: true, RedisMetrics: true})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("initialise dependencies")
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	handler, err := buildRouter(cfg, deps, logger, httpMetrics, tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise handlers")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("driver", cfg.StoreDriver).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited unexpectedly")
	}
}

func buildRouter(cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger, httpMetrics *obs.HTTPMetrics, tracing bool) (http.Handler, error) {
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Source:   deps.Store,
		Cache:    catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		PageSize: cfg.CatalogPageSize,
		MaxLimit: cfg.CatalogMaxLimit,
		Logger:   &logger,
	})
	if err != nil {
		return nil, err
	}

	engine := pricing.NewEngine(cfg.FreeShippingThreshold, cfg.FlatDeliveryFee)
	cartSvc := &cart.Service{Store: deps.Store, Products: deps.Store, Pricing: &engine}
	checkoutLogger := logger.With().Str("component", "checkout").Logger()
	checkoutSvc := &checkout.Service{
		Carts:  cartSvc,
		Orders: deps.Store,
		Tasks: tasks.Enqueuer{
			Client: deps.TaskClient,
			Breaker: resilience.NewBreaker(resilience.BreakerConfig{
				Target:      "task_queue",
				MinRequests: 5,
				OpenFor:     30 * time.Second,
				Logger:      checkoutLogger,
			}),
		},
		Lock:   lock.Locker{Client: deps.Redis, Prefix: "storefront:lock:"},
		Logger: checkoutLogger,
	}

	return newRouter(routerConfig{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Tracing:        tracing,
		Headers:        security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS},
		BodyLimit:      security.BodyLimit{Max: cfg.BodyLimitBytes},
		Metrics:        httpMetrics,
		Gatherer:       prometheus.DefaultGatherer,
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Cart:           &cart.Handler{Svc: cartSvc},
		Checkout:       &checkout.Handler{Svc: checkoutSvc},
		Health: health.Handler{
			Checker: health.Probes{
				Store: deps.Store,
				Redis: func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
			},
		},
		Idem: common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Prefix: "storefront:idem:"},
		APILimit: ratelimit.Handler{
			Limiter: ratelimit.SlidingWindow{Client: deps.Redis, Prefix: "storefront:rl:"},
			Config:  ratelimit.Config{Key: ratelimit.ClientKey, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
			OnError: limiterErrorLogger(logger, "api"),
		},
		OrderQuota: ratelimit.Handler{
			Limiter: deps.OrderQuota,
			Config:  ratelimit.Config{Key: ratelimit.SessionKey, Window: cfg.OrderQuotaWindow, Max: cfg.OrderQuotaMax},
			OnError: limiterErrorLogger(logger, "orders"),
		},
	}), nil
}
