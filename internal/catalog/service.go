package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/obs"
)

// Source supplies the product collection. ListProducts must return products
// in arrival order, which is the popularity order.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

// Service orchestrates snapshot loading, caching and the listing pipeline.
type Service struct {
	source   Source
	cache    *Cache
	pageSize int
	maxLimit int
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source   Source
	Cache    *Cache
	PageSize int
	MaxLimit int
	Logger   *zerolog.Logger
}

// Listing is the result of a browse request.
type Listing struct {
	Items      []ListingItem
	Filters    FilterState
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: product source is required")
	}
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 12
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 60
	}
	if pageSize > maxLimit {
		pageSize = maxLimit
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "catalog").Logger()
	}
	return &Service{
		source:   cfg.Source,
		cache:    cfg.Cache,
		pageSize: pageSize,
		maxLimit: maxLimit,
		logger:   logger,
	}, nil
}

// Snapshot returns the full product collection, preferring the cached copy.
func (s *Service) Snapshot(ctx context.Context) ([]Product, error) {
	return readThrough(ctx, s.cache, s.logger, productsCacheKey, func(ctx context.Context) ([]Product, error) {
		products, err := s.source.ListProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		if products == nil {
			products = []Product{}
		}
		return products, nil
	})
}

// Categories returns the category labels offered as filter choices.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return readThrough(ctx, s.cache, s.logger, categoriesCacheKey, func(ctx context.Context) ([]string, error) {
		categories, err := s.source.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		if categories == nil {
			categories = []string{}
		}
		return categories, nil
	})
}

// Browse runs the listing pipeline. A non-empty scope other than "all"
// restricts the collection to one category before any filter is applied.
func (s *Service) Browse(ctx context.Context, scope string, values url.Values) (Listing, error) {
	products, err := s.Snapshot(ctx)
	if err != nil {
		return Listing{}, err
	}
	products = scopeToCategory(products, scope)

	q, err := s.ParseQuery(values, products)
	if err != nil {
		return Listing{}, err
	}
	page, err := QueryPage(products, q.State, q.PageSize, q.Page)
	if err != nil {
		return Listing{}, err
	}
	items := make([]ListingItem, 0, len(page.Items))
	for _, p := range page.Items {
		item, err := NewListingItem(p)
		if err != nil {
			return Listing{}, err
		}
		items = append(items, item)
	}
	obs.RecordCatalogQuery(string(q.State.Sort))
	return Listing{
		Items:      items,
		Filters:    q.State,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	}, nil
}

// Product returns a single priced product.
func (s *Service) Product(ctx context.Context, id string) (ListingItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ListingItem{}, ErrNotFound
	}
	p, err := s.source.GetProduct(ctx, id)
	if err != nil {
		return ListingItem{}, err
	}
	return NewListingItem(p)
}

func scopeToCategory(products []Product, scope string) []Product {
	scope = strings.TrimSpace(scope)
	if scope == "" || strings.EqualFold(scope, "all") {
		return products
	}
	return FilterProducts(products, FilterState{
		Categories: []string{scope},
		Price:      PriceRange{Min: 0, Max: MaxPrice(products)},
	})
}
