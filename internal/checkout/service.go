package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/tasks"
)

var (
	// ErrEmptyCart is returned when an order is placed from an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound indicates the order does not exist for the session.
	ErrNotFound = errors.New("order not found")
	// ErrNotCancellable is returned when the order status forbids cancellation.
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// Store persists orders per shopper session.
type Store interface {
	CreateOrder(ctx context.Context, order Order) error
	ListOrders(ctx context.Context, sessionID string) ([]Order, error)
	GetOrder(ctx context.Context, sessionID, orderID string) (Order, error)
	// UpdateOrderStatus moves the order to status only when its current
	// status is one of from. It returns ErrNotFound for an unknown order and
	// ErrNotCancellable when the current status does not match.
	UpdateOrderStatus(ctx context.Context, sessionID, orderID string, from []string, status string) error
}

// Enqueuer schedules post-checkout work.
type Enqueuer interface {
	EnqueueOrderPlaced(ctx context.Context, p tasks.OrderPlaced) error
}

// Locker serializes order placement for a session.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const placeOrderLockTTL = 15 * time.Second

// Service places and manages orders.
type Service struct {
	Carts  *cart.Service
	Orders Store
	Tasks  Enqueuer
	// Lock is optional; without it concurrent checkouts of one cart may both
	// succeed.
	Lock   Locker
	Now    func() time.Time
	Logger zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

// Summary recomputes the checkout summary from the stored cart.
func (s *Service) Summary(ctx context.Context, sessionID string) (cart.View, error) {
	if err := s.ready(); err != nil {
		return cart.View{}, err
	}
	return s.Carts.View(ctx, sessionID)
}

// PlaceOrder converts the session cart into an order, clears the cart and
// schedules the confirmation task.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, in Input) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	in = normalizeInput(in)
	if err := common.ValidateStruct(in); err != nil {
		return Order{}, err
	}
	if s.Lock == nil {
		return s.placeOrder(ctx, sessionID, in)
	}
	var order Order
	err := s.Lock.WithLock(ctx, "checkout:"+sessionID, placeOrderLockTTL, func(ctx context.Context) error {
		var err error
		order, err = s.placeOrder(ctx, sessionID, in)
		return err
	})
	return order, err
}

func (s *Service) placeOrder(ctx context.Context, sessionID string, in Input) (Order, error) {
	view, err := s.Carts.View(ctx, sessionID)
	if err != nil {
		return Order{}, err
	}
	if len(view.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	now := s.now().UTC()
	order := Order{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Name:          in.Name,
		Mobile:        in.Mobile,
		Email:         in.Email,
		Address:       in.Address,
		Pincode:       in.Pincode,
		PaymentMethod: in.PaymentMethod,
		Items:         orderItems(view.Items),
		Summary:       view.Summary,
		Status:        StatusPlaced,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Orders.CreateOrder(ctx, order); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	obs.RecordOrderPlaced(order.PaymentMethod)

	if err := s.Carts.Store.ClearItems(ctx, sessionID); err != nil {
		s.Logger.Warn().Err(err).Str("order_id", order.ID).Msg("clear cart after order")
	}
	if s.Tasks != nil {
		err := s.Tasks.EnqueueOrderPlaced(ctx, tasks.OrderPlaced{
			OrderID:       order.ID,
			SessionID:     sessionID,
			Name:          order.Name,
			Email:         order.Email,
			PaymentMethod: order.PaymentMethod,
			GrandTotal:    order.Summary.GrandTotal,
			ItemCount:     view.Count,
			PlacedAt:      now,
		})
		if err != nil {
			s.Logger.Error().Err(err).Str("order_id", order.ID).Msg("enqueue order placed task")
		}
	}
	return order, nil
}

// ListOrders lists the session's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, sessionID string) ([]Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListOrders(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// Cancel moves a placed or in-transit order to Cancelled.
func (s *Service) Cancel(ctx context.Context, sessionID, orderID string) (Order, error) {
	if err := s.ready(); err != nil {
		return Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, ErrNotFound
	}
	if err := s.Orders.UpdateOrderStatus(ctx, sessionID, orderID, CancellableStatuses, StatusCancelled); err != nil {
		return Order{}, err
	}
	return s.Orders.GetOrder(ctx, sessionID, orderID)
}

func normalizeInput(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	return in
}
