package main

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/store/memstore"
	"github.com/noah-isme/storefront/internal/store/seed"
)

func newSnapshotCache(t *testing.T) (*catalog.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute), mr
}

func TestApplySeedsProductsAndCategories(t *testing.T) {
	fixture, err := seed.Default()
	require.NoError(t, err)

	cache, _ := newSnapshotCache(t)
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, apply(ctx, st, cache, zerolog.Nop(), fixture, false))

	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(fixture.Products))

	categories, err := st.ListCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, fixture.Categories, categories)
}

func TestApplyCategoriesOnly(t *testing.T) {
	fixture, err := seed.Default()
	require.NoError(t, err)

	cache, _ := newSnapshotCache(t)
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, apply(ctx, st, cache, zerolog.Nop(), fixture, true))

	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestApplyDropsCachedSnapshot(t *testing.T) {
	fixture, err := seed.Default()
	require.NoError(t, err)

	cache, mr := newSnapshotCache(t)
	require.NoError(t, mr.Set("catalog:snapshot:products", "[]"))
	require.NoError(t, mr.Set("catalog:snapshot:categories", "[]"))

	st := memstore.New()
	svc, err := catalog.NewService(catalog.ServiceConfig{Source: st, Cache: cache})
	require.NoError(t, err)
	ctx := context.Background()

	stale, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, stale)

	require.NoError(t, apply(ctx, st, cache, zerolog.Nop(), fixture, false))
	require.False(t, mr.Exists("catalog:snapshot:products"))
	require.False(t, mr.Exists("catalog:snapshot:categories"))

	fresh, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, len(fixture.Products))
}

func TestApplyToleratesCacheOutage(t *testing.T) {
	fixture, err := seed.Default()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	st := memstore.New()
	require.NoError(t, apply(context.Background(), st, catalog.NewCache(client, time.Minute), zerolog.Nop(), fixture, false))
}
