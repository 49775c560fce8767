package checkout

import (
	"time"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Order statuses.
const (
	StatusPlaced    = "order placed"
	StatusInTransit = "In-transit"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentStripe   = "stripe"
	PaymentRazorpay = "razorpay"
	PaymentCOD      = "cod"
)

// CancellableStatuses lists the statuses an order may be cancelled from.
var CancellableStatuses = []string{StatusPlaced, StatusInTransit}

// Input is the delivery and payment form submitted at checkout.
type Input struct {
	Name          string `json:"name" validate:"required,max=120"`
	Mobile        string `json:"mobile" validate:"required,min=7,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"required,max=500"`
	Pincode       string `json:"pincode" validate:"omitempty,max=12"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=stripe razorpay cod"`
}

// OrderItem is a priced snapshot of a cart line.
type OrderItem struct {
	ProductID           string        `json:"productId"`
	Title               string        `json:"title"`
	Description         string        `json:"description,omitempty"`
	Image               string        `json:"image,omitempty"`
	Size                string        `json:"size,omitempty"`
	Price               pricing.Money `json:"price"`
	Discount            int           `json:"discount"`
	Quantity            int           `json:"quantity"`
	DiscountedUnitPrice pricing.Money `json:"discountedUnitPrice"`
	LineTotal           pricing.Money `json:"lineTotal"`
}

// Order is a placed order.
type Order struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"-"`
	Name          string          `json:"name"`
	Mobile        string          `json:"mobile"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address"`
	Pincode       string          `json:"pincode,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []OrderItem     `json:"items"`
	Summary       pricing.Summary `json:"summary"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Cancellable reports whether the order may still be cancelled.
func (o Order) Cancellable() bool {
	for _, s := range CancellableStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

func orderItems(views []cart.ItemView) []OrderItem {
	items := make([]OrderItem, 0, len(views))
	for _, v := range views {
		items = append(items, OrderItem{
			ProductID:           v.ProductID,
			Title:               v.Title,
			Description:         v.Description,
			Image:               v.Image,
			Size:                v.Size,
			Price:               v.Price,
			Discount:            v.Discount,
			Quantity:            v.Quantity,
			DiscountedUnitPrice: v.DiscountedUnitPrice,
			LineTotal:           v.LineTotal,
		})
	}
	return items
}
