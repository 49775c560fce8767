package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	RedisURL      string
	SeedFile      string

	AssetBaseURL        string
	PlaceholderImageURL string

	CatalogPageSize int
	CatalogMaxLimit int
	CatalogCacheTTL time.Duration

	FreeShippingThreshold int64
	FlatDeliveryFee       int64

	SecurityHeaders bool
	EnableHSTS      bool
	BodyLimitBytes  int64

	IdempotencyTTL    time.Duration
	RateLimitWindow   time.Duration
	RateLimitMax      int
	OrderQuotaWindow  time.Duration
	OrderQuotaMax     int
	WorkerConcurrency int
	WorkerMetricsAddr string

	OrderWebhookURL     string
	OrderWebhookSecret  string
	OrderWebhookTimeout time.Duration

	MetricsNamespace string
	MetricsBuckets   string
	OTelExporter     string
	OTelEndpoint     string
	OTelSampleRatio  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StoreDriver:   strings.ToLower(valueOrDefault(k.String("STORE_DRIVER"), DriverMongo)),
		MongoURI:      strings.TrimSpace(k.String("MONGO_URI")),
		MongoDatabase: valueOrDefault(k.String("MONGO_DATABASE"), "storefront"),
		DatabaseURL:   strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:      strings.TrimSpace(k.String("REDIS_URL")),
		SeedFile:      strings.TrimSpace(k.String("CATALOG_SEED_FILE")),

		AssetBaseURL:        strings.TrimRight(strings.TrimSpace(k.String("ASSET_BASE_URL")), "/"),
		PlaceholderImageURL: valueOrDefault(k.String("PLACEHOLDER_IMAGE_URL"), "https://via.placeholder.com/300x400?text=No+Image"),

		CatalogPageSize: parseInt(k.String("CATALOG_PAGE_SIZE"), 12),
		CatalogMaxLimit: parseInt(k.String("CATALOG_MAX_LIMIT"), 60),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),

		FreeShippingThreshold: int64(parseInt(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), 1000)),
		FlatDeliveryFee:       int64(parseInt(k.String("PRICING_FLAT_DELIVERY_FEE"), 50)),

		SecurityHeaders: parseBool(k.String("SECURITY_HEADERS"), true),
		EnableHSTS:      parseBool(k.String("SECURITY_HSTS"), false),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:      parseInt(k.String("RATE_LIMIT_MAX"), 120),
		OrderQuotaWindow:  parseDuration(k.String("ORDER_QUOTA_WINDOW"), "1h"),
		OrderQuotaMax:     parseInt(k.String("ORDER_QUOTA_MAX"), 10),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
		WorkerMetricsAddr: strings.TrimSpace(k.String("WORKER_METRICS_ADDR")),

		OrderWebhookURL:     strings.TrimSpace(k.String("ORDER_WEBHOOK_URL")),
		OrderWebhookSecret:  strings.TrimSpace(k.String("ORDER_WEBHOOK_SECRET")),
		OrderWebhookTimeout: parseDuration(k.String("ORDER_WEBHOOK_TIMEOUT"), "5s"),

		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "storefront"),
		MetricsBuckets:   strings.TrimSpace(k.String("METRICS_BUCKETS_MS")),
		OTelExporter:     valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		OTelEndpoint:     strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTelSampleRatio:  parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.OrderWebhookURL != "" {
		if err := validateWebhookURL(c.OrderWebhookURL); err != nil {
			return fmt.Errorf("ORDER_WEBHOOK_URL: %w", err)
		}
	}
	if c.FreeShippingThreshold < 0 {
		return errors.New("PRICING_FREE_SHIPPING_THRESHOLD must not be negative")
	}
	if c.FlatDeliveryFee < 0 {
		return errors.New("PRICING_FLAT_DELIVERY_FEE must not be negative")
	}
	if c.CatalogPageSize < 1 || c.CatalogMaxLimit < 1 {
		return errors.New("CATALOG_PAGE_SIZE and CATALOG_MAX_LIMIT must be positive")
	}
	return nil
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

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func validateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must be an http or https url")
	}
	if parsed.Host == "" {
		return errors.New("must include a host")
	}
	return nil
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
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
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

// parseInt returns fallback for empty or malformed input; negative values
// are kept so validate can reject them.
func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
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
