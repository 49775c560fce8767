package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/security"
)

type routerConfig struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	Tracing        bool
	Headers        security.Headers
	BodyLimit      security.BodyLimit
	Metrics        *obs.HTTPMetrics
	Gatherer       prometheus.Gatherer

	Catalog  *catalog.Handler
	Cart     *cart.Handler
	Checkout *checkout.Handler
	Health   health.Handler

	Idem       common.Idem
	APILimit   ratelimit.Handler
	OrderQuota ratelimit.Handler
}

func newRouter(rc routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rc.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rc.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: rc.Metrics}.Middleware)
	}
	r.Use(rc.Headers.Middleware)
	r.Use(rc.BodyLimit.Middleware)
	r.Use(common.SessionMiddleware)
	r.Use(obs.RequestLogger{Logger: rc.Logger, Quiet: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(rc.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.SessionHeader, "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if rc.Gatherer != nil {
		r.Handle("/metrics", obs.MetricsHandler(rc.Gatherer))
	}
	r.Get("/health/live", rc.Health.Live)
	r.Get("/health/ready", rc.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rc.APILimit.Middleware)

		v.Get("/categories", rc.Catalog.Categories)
		v.Get("/categories/{category}/products", rc.Catalog.CategoryProducts)
		v.Get("/products", rc.Catalog.Products)
		v.Get("/products/{id}", rc.Catalog.ProductDetail)

		v.Group(func(s chi.Router) {
			s.Use(common.RequireSession)

			s.Get("/cart", rc.Cart.Get)
			s.Post("/cart/items", rc.Cart.AddItem)
			s.Delete("/cart/items/{itemId}", rc.Cart.RemoveItem)

			s.Get("/checkout/summary", rc.Checkout.Summary)
			s.Get("/orders", rc.Checkout.Orders)
			s.With(rc.OrderQuota.Middleware, rc.Idem.Middleware).Post("/orders", rc.Checkout.PlaceOrder)
			s.Post("/orders/{orderId}/cancel", rc.Checkout.Cancel)
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func limiterErrorLogger(logger zerolog.Logger, name string) func(error) {
	return func(err error) {
		logger.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable")
	}
}

const shutdownGrace = 10 * time.Second
