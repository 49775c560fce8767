package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/app"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/store/seed"
)

func main() {
	file := flag.String("file", "", "catalog fixture (defaults to CATALOG_SEED_FILE, then the embedded catalog)")
	categoriesOnly := flag.Bool("categories-only", false, "only replace the curated category list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	path := *file
	if path == "" {
		path = cfg.SeedFile
	}
	fixture, err := seed.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Str("file", path).Msg("load catalog fixture")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger, fixture, *categoriesOnly); err != nil {
		logger.Error().Err(err).Msg("seeding failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, fixture seed.Catalog, categoriesOnly bool) error {
	st, closeStore, err := app.OpenStore(ctx, cfg, app.Options{AppName: "storefront-seeder", Migrate: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	return apply(ctx, st, catalog.NewCache(rdb, cfg.CatalogCacheTTL), logger, fixture, categoriesOnly)
}

// snapshotInvalidator drops the API's cached catalog snapshot.
type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// apply writes the fixture and then drops the cached snapshot so the API
// serves the new catalog on its next read.
func apply(ctx context.Context, st app.Store, cache snapshotInvalidator, logger zerolog.Logger, fixture seed.Catalog, categoriesOnly bool) error {
	if !categoriesOnly {
		if err := st.InsertProducts(ctx, fixture.Products); err != nil {
			return err
		}
		logger.Info().Int("products", len(fixture.Products)).Msg("products seeded")
	}
	if err := st.SetCategories(ctx, fixture.Categories); err != nil {
		return err
	}
	logger.Info().Strs("categories", fixture.Categories).Msg("categories seeded")

	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn().Err(err).Msg("invalidate catalog cache; the API serves the old snapshot until it expires")
		return nil
	}
	logger.Info().Msg("catalog cache invalidated")
	return nil
}
