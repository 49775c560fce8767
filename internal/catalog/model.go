package catalog

import (
	"errors"
	"fmt"

	"github.com/noah-isme/storefront/internal/pricing"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Gender labels used by the storefront filters.
const (
	GenderMen    = "Men"
	GenderWomen  = "Women"
	GenderUnisex = "Unisex"
)

// Product is a read-only catalog entry fetched from the store.
type Product struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category"`
	Gender      string        `json:"gender"`
	Price       pricing.Money `json:"price"`
	Discount    int           `json:"discount"`
	Rating      float64       `json:"rating"`
	Image       string        `json:"image,omitempty"`
	Images      []string      `json:"images,omitempty"`
	Sizes       []string      `json:"sizes,omitempty"`
}

// Validate reports malformed commerce fields.
func (p Product) Validate() error {
	if err := pricing.ValidatePrice(p.Price, p.Discount); err != nil {
		return fmt.Errorf("product %s: %w", p.ID, err)
	}
	return nil
}

// ListingItem is a product as shown on a listing page.
type ListingItem struct {
	Product
	DiscountedPrice pricing.Money `json:"discountedPrice"`
}

// NewListingItem prices p with the shared discount formula.
func NewListingItem(p Product) (ListingItem, error) {
	if err := p.Validate(); err != nil {
		return ListingItem{}, err
	}
	price, err := pricing.UnitDiscountedPrice(p.Price, p.Discount)
	if err != nil {
		return ListingItem{}, err
	}
	return ListingItem{Product: p, DiscountedPrice: price}, nil
}
