package pricing

import (
	"errors"
	"fmt"
)

// Money represents a monetary value in whole currency units.
type Money = int64

const (
	// DefaultFreeShippingThreshold is the cart total above which delivery is free.
	DefaultFreeShippingThreshold Money = 1000
	// DefaultFlatDeliveryFee is charged when the threshold is not exceeded.
	DefaultFlatDeliveryFee Money = 50
)

// ErrInvalidInput is returned when a price, discount, or quantity is malformed.
var ErrInvalidInput = errors.New("invalid input")

// Line describes a cart line used for pricing calculation.
type Line struct {
	Price    Money
	Discount int
	Quantity int
}

// Summary aggregates computed pricing components for a cart.
type Summary struct {
	TotalPrice     Money `json:"totalPrice"`
	TotalDiscount  Money `json:"totalDiscount"`
	DeliveryCharge Money `json:"deliveryCharge"`
	GrandTotal     Money `json:"grandTotal"`
}

// Engine carries the delivery policy applied during aggregation.
type Engine struct {
	FreeShippingThreshold Money
	FlatDeliveryFee       Money
}

// DefaultEngine uses the stock delivery policy.
var DefaultEngine = Engine{
	FreeShippingThreshold: DefaultFreeShippingThreshold,
	FlatDeliveryFee:       DefaultFlatDeliveryFee,
}

// NewEngine builds an Engine. Negative values fall back to the defaults.
func NewEngine(threshold, fee Money) Engine {
	e := DefaultEngine
	if threshold >= 0 {
		e.FreeShippingThreshold = threshold
	}
	if fee >= 0 {
		e.FlatDeliveryFee = fee
	}
	return e
}

// ValidatePrice checks the commerce fields shared by products and cart lines.
func ValidatePrice(price Money, discount int) error {
	if price < 0 {
		return fmt.Errorf("price %d must be non-negative: %w", price, ErrInvalidInput)
	}
	if discount < 0 || discount > 100 {
		return fmt.Errorf("discount %d must be within 0-100: %w", discount, ErrInvalidInput)
	}
	return nil
}

// Validate checks a cart line.
func (l Line) Validate() error {
	if err := ValidatePrice(l.Price, l.Discount); err != nil {
		return err
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("quantity %d must be positive: %w", l.Quantity, ErrInvalidInput)
	}
	return nil
}

// UnitDiscountedPrice returns floor(price - price*discount/100).
func UnitDiscountedPrice(price Money, discount int) (Money, error) {
	if err := ValidatePrice(price, discount); err != nil {
		return 0, err
	}
	// price*(100-discount) is non-negative so integer division floors.
	return price * Money(100-discount) / 100, nil
}

// LineTotal returns the discounted unit price multiplied by the quantity.
func LineTotal(l Line) (Money, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	unit, err := UnitDiscountedPrice(l.Price, l.Discount)
	if err != nil {
		return 0, err
	}
	return unit * Money(l.Quantity), nil
}

// Summarize aggregates lines using DefaultEngine.
func Summarize(lines []Line) (Summary, error) {
	return DefaultEngine.Summarize(lines)
}

// Summarize aggregates cart totals. The discount is accumulated across all
// lines in hundredths and floored once at the end.
func (e Engine) Summarize(lines []Line) (Summary, error) {
	var (
		total           Money
		discountHundred Money
	)
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			return Summary{}, fmt.Errorf("line %d: %w", i, err)
		}
		qty := Money(l.Quantity)
		total += l.Price * qty
		discountHundred += l.Price * Money(l.Discount) * qty
	}
	discount := discountHundred / 100
	delivery := e.deliveryCharge(total, len(lines))
	return Summary{
		TotalPrice:     total,
		TotalDiscount:  discount,
		DeliveryCharge: delivery,
		GrandTotal:     total - discount + delivery,
	}, nil
}

func (e Engine) deliveryCharge(total Money, lines int) Money {
	if lines == 0 || total > e.FreeShippingThreshold {
		return 0
	}
	return e.FlatDeliveryFee
}
