package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/store"
	"github.com/noah-isme/storefront/internal/store/memstore"
	"github.com/noah-isme/storefront/internal/store/mongostore"
	"github.com/noah-isme/storefront/internal/store/pgstore"
	"github.com/noah-isme/storefront/internal/store/seed"
)

// Store is implemented by every persistence driver.
type Store interface {
	catalog.Source
	cart.Store
	checkout.Store
	Ping(ctx context.Context) error
	InsertProducts(ctx context.Context, products []catalog.Product) error
	SetCategories(ctx context.Context, categories []string) error
}

// Dependencies enumerates core services shared by the API, the worker and the seeder.
type Dependencies struct {
	Store      Store
	Redis      *redis.Client
	TaskClient *asynq.Client
	TaskRedis  asynq.RedisConnOpt
	OrderQuota ratelimit.Quota

	closers []func(context.Context) error
}

// Options tunes Open.
type Options struct {
	AppName string
	// Migrate applies SQL migrations when the postgres driver is selected.
	Migrate bool
	// SkipTasks leaves TaskClient nil, for processes that only consume tasks.
	SkipTasks bool
	// RedisMetrics exports Redis client metrics through OpenTelemetry.
	RedisMetrics bool
}

// Open connects the configured store, Redis and the task client. Callers
// must Close the result.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	deps := &Dependencies{}

	st, closeStore, err := OpenStore(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	deps.Store = st
	deps.closers = append(deps.closers, closeStore)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	deps.Redis = redis.NewClient(redisOpts)
	deps.closers = append(deps.closers, func(context.Context) error { return deps.Redis.Close() })
	if err := redisotel.InstrumentTracing(deps.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(deps.Redis); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := deps.Redis.Ping(ctx).Err(); err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	deps.OrderQuota, err = ratelimit.NewRedisQuota(deps.Redis, "storefront:quota:")
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("init order quota: %w", err)
	}

	deps.TaskRedis, err = asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	if !opts.SkipTasks {
		deps.TaskClient = asynq.NewClient(deps.TaskRedis)
		deps.closers = append(deps.closers, func(context.Context) error { return deps.TaskClient.Close() })
	}
	return deps, nil
}

// OpenStore builds the store selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, opts Options) (Store, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		st, err := mongostore.Connect(ctx, mongostore.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Images:   store.ImageResolver{BaseURL: cfg.AssetBaseURL, Placeholder: cfg.PlaceholderImageURL},
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.DriverPostgres:
		if opts.Migrate {
			if err := RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
		}
		st, err := pgstore.Open(ctx, cfg.DatabaseURL, opts.AppName)
		if err != nil {
			return nil, nil, err
		}
		return st, func(context.Context) error { st.Close(); return nil }, nil
	case config.DriverMemory:
		fixture, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		st := memstore.New(fixture.Products...)
		if err := st.SetCategories(ctx, fixture.Categories); err != nil {
			return nil, nil, err
		}
		return st, func(context.Context) error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// RunMigrations applies the SQL migrations for the postgres driver.
func RunMigrations(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database url is required for migrations")
	}
	return pgstore.Migrate(databaseURL)
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
