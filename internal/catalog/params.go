package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Query is a parsed listing request.
type Query struct {
	State    FilterState
	Page     int
	PageSize int
}

// ParseQuery normalises raw query values into a FilterState for products.
// A missing maxPrice falls back to the maximum price of products. Only an
// explicit minPrice above an explicit maxPrice is rejected; a minPrice above
// the default ceiling simply matches nothing.
func (s *Service) ParseQuery(values url.Values, products []Product) (Query, error) {
	q := Query{
		State:    DefaultFilterState(products),
		Page:     1,
		PageSize: s.pageSize,
	}
	q.State.Categories = multiValue(values, "category")
	q.State.Genders = multiValue(values, "gender")

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, common.BadRequest("page", "page must be a positive integer", err)
		}
		q.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return q, common.BadRequest("limit", "limit must be a positive integer", err)
		}
		q.PageSize = min(limit, s.maxLimit)
	}

	minSet, maxSet := false, false
	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		minSet = true
		parsed, err := parseMoney(v)
		if err != nil {
			return q, common.BadRequest("minPrice", "minPrice must be a non-negative integer", err)
		}
		q.State.Price.Min = parsed
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		maxSet = true
		parsed, err := parseMoney(v)
		if err != nil {
			return q, common.BadRequest("maxPrice", "maxPrice must be a non-negative integer", err)
		}
		q.State.Price.Max = parsed
	}
	if minSet && maxSet && q.State.Price.Min > q.State.Price.Max {
		return q, common.BadRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}

	sort, ok := ParseSortKey(strings.ToLower(strings.TrimSpace(values.Get("sort"))))
	if !ok {
		return q, common.BadRequest("sort", "sort must be one of popularity, low-price, high-price, discount, rating", fmt.Errorf("unknown sort %q", values.Get("sort")))
	}
	q.State.Sort = sort
	return q, nil
}

// multiValue accepts both repeated keys and comma separated lists.
func multiValue(values url.Values, key string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
			out = append(out, trimmed)
		}
	}
	return out
}

func parseMoney(v string) (pricing.Money, error) {
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed < 0 {
		return 0, fmt.Errorf("negative amount %d", parsed)
	}
	return parsed, nil
}
