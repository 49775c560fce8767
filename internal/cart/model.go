package cart

import (
	"time"

	"github.com/noah-isme/storefront/internal/pricing"
)

// Item is one cart line. Commerce fields are copied from the product when
// the line is added so later catalog edits do not reprice the cart.
type Item struct {
	ID          string        `json:"id"`
	ProductID   string        `json:"productId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Image       string        `json:"image,omitempty"`
	Size        string        `json:"size,omitempty"`
	Price       pricing.Money `json:"price"`
	Discount    int           `json:"discount"`
	Quantity    int           `json:"quantity"`
	AddedAt     time.Time     `json:"addedAt"`
}

// Line converts the item into a pricing line.
func (i Item) Line() pricing.Line {
	return pricing.Line{Price: i.Price, Discount: i.Discount, Quantity: i.Quantity}
}

// Lines converts items into pricing lines.
func Lines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line())
	}
	return lines
}

// ItemView is an item priced for display.
type ItemView struct {
	Item
	DiscountedUnitPrice pricing.Money `json:"discountedUnitPrice"`
	// LineTotal floors the discount per unit while the summary floors it
	// once across the cart, so line totals need not sum to GrandTotal minus
	// DeliveryCharge.
	LineTotal pricing.Money `json:"lineTotal"`
	Savings   pricing.Money `json:"savings"`
}

// View is the priced cart returned to clients.
type View struct {
	Items   []ItemView      `json:"items"`
	Summary pricing.Summary `json:"summary"`
	Count   int             `json:"count"`
}

// NewItemView prices a single item.
func NewItemView(it Item) (ItemView, error) {
	unit, err := pricing.UnitDiscountedPrice(it.Price, it.Discount)
	if err != nil {
		return ItemView{}, err
	}
	total, err := pricing.LineTotal(it.Line())
	if err != nil {
		return ItemView{}, err
	}
	return ItemView{
		Item:                it,
		DiscountedUnitPrice: unit,
		LineTotal:           total,
		Savings:             it.Price*pricing.Money(it.Quantity) - total,
	}, nil
}

// Count returns the number of units across items.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
