package catalog

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/noah-isme/storefront/internal/pricing"
)

// SortKey selects the ordering applied to a filtered collection.
type SortKey string

// Supported sort keys.
const (
	SortPopularity SortKey = "popularity"
	SortLowPrice   SortKey = "low-price"
	SortHighPrice  SortKey = "high-price"
	SortDiscount   SortKey = "discount"
	SortRating     SortKey = "rating"
)

// DefaultPriceCeiling is the price range maximum used for an empty collection.
const DefaultPriceCeiling pricing.Money = 10000

// ParseSortKey resolves a raw sort value. Empty input selects popularity.
func ParseSortKey(raw string) (SortKey, bool) {
	switch key := SortKey(raw); key {
	case "":
		return SortPopularity, true
	case SortPopularity, SortLowPrice, SortHighPrice, SortDiscount, SortRating:
		return key, true
	default:
		return "", false
	}
}

// PriceRange is an inclusive price bound.
type PriceRange struct {
	Min pricing.Money `json:"min"`
	Max pricing.Money `json:"max"`
}

// FilterState is the caller-owned set of active listing selections.
// Empty category or gender sets place no restriction.
type FilterState struct {
	Categories []string   `json:"categories"`
	Genders    []string   `json:"genders"`
	Price      PriceRange `json:"priceRange"`
	Sort       SortKey    `json:"sort"`
}

// Page is one slice of a filtered and sorted collection.
type Page struct {
	Items      []Product
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// MaxPrice returns the highest price in products, or DefaultPriceCeiling when empty.
func MaxPrice(products []Product) pricing.Money {
	if len(products) == 0 {
		return DefaultPriceCeiling
	}
	highest := products[0].Price
	for _, p := range products[1:] {
		highest = max(highest, p.Price)
	}
	return highest
}

// DefaultFilterState returns the unrestricted state for products.
func DefaultFilterState(products []Product) FilterState {
	return FilterState{
		Categories: []string{},
		Genders:    []string{},
		Price:      PriceRange{Min: 0, Max: MaxPrice(products)},
		Sort:       SortPopularity,
	}
}

// ClearFilters resets a state back to defaults. The returned sets never alias defaults.
func ClearFilters(defaults FilterState) FilterState {
	sort := defaults.Sort
	if sort == "" {
		sort = SortPopularity
	}
	return FilterState{
		Categories: slices.Clone(nonNil(defaults.Categories)),
		Genders:    slices.Clone(nonNil(defaults.Genders)),
		Price:      defaults.Price,
		Sort:       sort,
	}
}

// QueryPage filters, sorts and slices products. Pages are 1-indexed and not
// clamped: a page outside [1, TotalPages] yields no items.
func QueryPage(products []Product, state FilterState, pageSize, page int) (Page, error) {
	if pageSize < 1 {
		return Page{}, fmt.Errorf("page size %d must be positive: %w", pageSize, pricing.ErrInvalidInput)
	}
	matched := SortProducts(FilterProducts(products, state), state.Sort)
	total := len(matched)
	result := Page{
		Items:      []Product{},
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
		PageSize:   pageSize,
	}
	if page < 1 || page > result.TotalPages {
		return result, nil
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	result.Items = matched[start:end]
	return result, nil
}

// FilterProducts applies the category, gender and price stages in that order.
func FilterProducts(products []Product, state FilterState) []Product {
	categories := toSet(state.Categories)
	genders := toSet(state.Genders)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if len(categories) > 0 {
			if _, ok := categories[p.Category]; !ok {
				continue
			}
		}
		if len(genders) > 0 {
			if _, ok := genders[p.Gender]; !ok {
				continue
			}
		}
		if p.Price < state.Price.Min || p.Price > state.Price.Max {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortProducts returns a stably sorted copy. Popularity keeps arrival order.
func SortProducts(products []Product, key SortKey) []Product {
	out := slices.Clone(products)
	var compare func(a, b Product) int
	switch key {
	case SortLowPrice:
		compare = func(a, b Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortHighPrice:
		compare = func(a, b Product) int { return cmp.Compare(b.Price, a.Price) }
	case SortDiscount:
		compare = func(a, b Product) int { return cmp.Compare(b.Discount, a.Discount) }
	case SortRating:
		compare = func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
