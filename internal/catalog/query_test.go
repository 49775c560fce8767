package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/pricing"
)

func sampleProducts() []Product {
	return []Product{
		{ID: "p1", Title: "Linen Shirt", Category: "Shirts", Gender: GenderMen, Price: 799, Discount: 10, Rating: 4.2},
		{ID: "p2", Title: "Summer Dress", Category: "Dresses", Gender: GenderWomen, Price: 1299, Discount: 25, Rating: 4.8},
		{ID: "p3", Title: "Canvas Sneaker", Category: "Shoes", Gender: GenderUnisex, Price: 1999, Discount: 0},
		{ID: "p4", Title: "Oxford Shirt", Category: "Shirts", Gender: GenderMen, Price: 799, Discount: 25, Rating: 4.2},
		{ID: "p5", Title: "Wrap Skirt", Category: "Skirts", Gender: GenderWomen, Price: 499, Discount: 10, Rating: 3.9},
		{ID: "p6", Title: "Hoodie", Category: "Shirts", Gender: GenderUnisex, Price: 1499, Discount: 40, Rating: 4.8},
		{ID: "p7", Title: "Running Shoe", Category: "Shoes", Gender: GenderMen, Price: 2499, Discount: 0, Rating: 4.5},
	}
}

func ids(products []Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestQueryPageDefaultsToPopularityOrder(t *testing.T) {
	products := sampleProducts()
	page, err := QueryPage(products, DefaultFilterState(products), 3, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2", "p3"}, ids(page.Items))
	require.Equal(t, 7, page.TotalCount)
	require.Equal(t, 3, page.TotalPages)
}

func TestQueryPageFilterStages(t *testing.T) {
	products := sampleProducts()
	cases := []struct {
		name  string
		state FilterState
		want  []string
	}{
		{
			name:  "category",
			state: FilterState{Categories: []string{"Shirts"}, Price: PriceRange{Max: 10000}},
			want:  []string{"p1", "p4", "p6"},
		},
		{
			name:  "gender",
			state: FilterState{Genders: []string{GenderWomen}, Price: PriceRange{Max: 10000}},
			want:  []string{"p2", "p5"},
		},
		{
			name:  "category and gender",
			state: FilterState{Categories: []string{"Shirts", "Shoes"}, Genders: []string{GenderUnisex}, Price: PriceRange{Max: 10000}},
			want:  []string{"p3", "p6"},
		},
		{
			name:  "inclusive price bounds",
			state: FilterState{Price: PriceRange{Min: 799, Max: 1299}},
			want:  []string{"p1", "p2", "p4"},
		},
		{
			name:  "unknown labels never match",
			state: FilterState{Categories: []string{"Hats"}, Price: PriceRange{Max: 10000}},
			want:  []string{},
		},
		{
			name:  "max below every price",
			state: FilterState{Price: PriceRange{Max: 100}},
			want:  []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := QueryPage(products, tc.state, 10, 1)
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(page.Items))
			require.Equal(t, len(tc.want), page.TotalCount)
		})
	}
}

func TestQueryPageEmptyResults(t *testing.T) {
	page, err := QueryPage(nil, DefaultFilterState(nil), 12, 1)
	require.NoError(t, err)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
	require.Zero(t, page.TotalCount)
	require.Zero(t, page.TotalPages)

	page, err = QueryPage(sampleProducts(), FilterState{Price: PriceRange{Max: 1}}, 12, 1)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Zero(t, page.TotalPages)
}

func TestQueryPageSortKeys(t *testing.T) {
	products := sampleProducts()
	cases := map[SortKey][]string{
		SortPopularity: {"p1", "p2", "p3", "p4", "p5", "p6", "p7"},
		SortLowPrice:   {"p5", "p1", "p4", "p2", "p6", "p3", "p7"},
		SortHighPrice:  {"p7", "p3", "p6", "p2", "p1", "p4", "p5"},
		SortDiscount:   {"p6", "p2", "p4", "p1", "p5", "p3", "p7"},
		SortRating:     {"p2", "p6", "p7", "p1", "p4", "p5", "p3"},
	}
	for key, want := range cases {
		t.Run(string(key), func(t *testing.T) {
			state := DefaultFilterState(products)
			state.Sort = key
			page, err := QueryPage(products, state, len(products), 1)
			require.NoError(t, err)
			require.Equal(t, want, ids(page.Items))
		})
	}
}

func TestSortStabilityKeepsArrivalOrderForTies(t *testing.T) {
	var products []Product
	for i := 0; i < 20; i++ {
		products = append(products, Product{
			ID:       fmt.Sprintf("p%02d", i),
			Price:    pricing.Money(100 * (i % 3)),
			Discount: 5 * (i % 4),
			Rating:   float64(i % 2),
		})
	}
	keyOf := map[SortKey]func(Product) any{
		SortLowPrice:  func(p Product) any { return p.Price },
		SortHighPrice: func(p Product) any { return p.Price },
		SortDiscount:  func(p Product) any { return p.Discount },
		SortRating:    func(p Product) any { return p.Rating },
	}
	arrival := make(map[string]int, len(products))
	for i, p := range products {
		arrival[p.ID] = i
	}
	for key, extract := range keyOf {
		sorted := SortProducts(products, key)
		for i := 1; i < len(sorted); i++ {
			prev, cur := sorted[i-1], sorted[i]
			if extract(prev) == extract(cur) {
				require.Less(t, arrival[prev.ID], arrival[cur.ID], "sort %s reordered ties %s and %s", key, prev.ID, cur.ID)
			}
		}
	}
}

func TestSortProductsDoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	_ = SortProducts(products, SortHighPrice)
	require.Equal(t, []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"}, ids(products))
}

func TestPaginationCompleteness(t *testing.T) {
	products := sampleProducts()
	for _, key := range []SortKey{SortPopularity, SortLowPrice, SortHighPrice, SortDiscount, SortRating} {
		for pageSize := 1; pageSize <= 8; pageSize++ {
			state := DefaultFilterState(products)
			state.Sort = key
			first, err := QueryPage(products, state, pageSize, 1)
			require.NoError(t, err)

			var all []Product
			for page := 1; page <= first.TotalPages; page++ {
				p, err := QueryPage(products, state, pageSize, page)
				require.NoError(t, err)
				all = append(all, p.Items...)
			}
			require.Equal(t, ids(SortProducts(products, key)), ids(all), "sort %s page size %d", key, pageSize)
		}
	}
}

func TestFilterMonotonicity(t *testing.T) {
	products := sampleProducts()
	narrow := FilterState{Categories: []string{"Shirts"}, Genders: []string{GenderMen}, Price: PriceRange{Max: 10000}}
	wider := []FilterState{
		{Categories: []string{"Shirts", "Shoes"}, Genders: []string{GenderMen}, Price: narrow.Price},
		{Categories: []string{"Shirts"}, Genders: []string{GenderMen, GenderUnisex}, Price: narrow.Price},
		{Categories: []string{"Shirts", "Dresses"}, Genders: []string{GenderMen, GenderWomen}, Price: narrow.Price},
		{Price: narrow.Price},
	}
	base, err := QueryPage(products, narrow, 5, 1)
	require.NoError(t, err)
	for _, state := range wider {
		page, err := QueryPage(products, state, 5, 1)
		require.NoError(t, err)
		require.GreaterOrEqual(t, page.TotalCount, base.TotalCount)
	}
}

func TestClearFiltersReproducesDefaultQuery(t *testing.T) {
	products := sampleProducts()
	defaults := DefaultFilterState(products)

	active := FilterState{Categories: []string{"Shoes"}, Genders: []string{GenderMen}, Price: PriceRange{Min: 10, Max: 2000}, Sort: SortRating}
	_, err := QueryPage(products, active, 4, 2)
	require.NoError(t, err)

	cleared := ClearFilters(defaults)
	require.Equal(t, defaults, cleared)

	got, err := QueryPage(products, cleared, 4, 1)
	require.NoError(t, err)
	want, err := QueryPage(products, defaults, 4, 1)
	require.NoError(t, err)
	require.Equal(t, want, got)

	cleared.Categories = append(cleared.Categories, "Shoes")
	require.Empty(t, defaults.Categories)
}

func TestDefaultFilterStateUsesCollectionMaximum(t *testing.T) {
	require.Equal(t, pricing.Money(2499), DefaultFilterState(sampleProducts()).Price.Max)
	require.Equal(t, DefaultPriceCeiling, DefaultFilterState(nil).Price.Max)
	require.Equal(t, SortPopularity, DefaultFilterState(nil).Sort)
}

func TestQueryPageOutOfRange(t *testing.T) {
	products := sampleProducts()
	state := DefaultFilterState(products)
	first, err := QueryPage(products, state, 3, 1)
	require.NoError(t, err)

	beyond, err := QueryPage(products, state, 3, first.TotalPages+5)
	require.NoError(t, err)
	require.Empty(t, beyond.Items)
	require.Equal(t, first.TotalCount, beyond.TotalCount)
	require.Equal(t, first.TotalPages, beyond.TotalPages)

	zero, err := QueryPage(products, state, 3, 0)
	require.NoError(t, err)
	require.Empty(t, zero.Items)
}

func TestQueryPageRejectsNonPositivePageSize(t *testing.T) {
	_, err := QueryPage(sampleProducts(), FilterState{}, 0, 1)
	require.True(t, errors.Is(err, pricing.ErrInvalidInput))
}

func TestQueryPageIsIdempotent(t *testing.T) {
	products := sampleProducts()
	state := FilterState{Categories: []string{"Shirts", "Shoes"}, Price: PriceRange{Max: 5000}, Sort: SortDiscount}
	first, err := QueryPage(products, state, 2, 2)
	require.NoError(t, err)
	second, err := QueryPage(products, state, 2, 2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNewListingItemUsesSharedFormula(t *testing.T) {
	item, err := NewListingItem(Product{ID: "x", Price: 99, Discount: 10})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(89), item.DiscountedPrice)

	_, err = NewListingItem(Product{ID: "bad", Price: 99, Discount: 150})
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
}
