// Package tasks defines background jobs processed by cmd/worker.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/resilience"
)

// TypeOrderPlaced is the asynq task type emitted after checkout.
const TypeOrderPlaced = "order:placed"

// DefaultQueue is used when an Enqueuer has no queue configured.
const DefaultQueue = "orders"

// ErrPermanent marks notifier failures that retrying cannot fix.
var ErrPermanent = errors.New("tasks: permanent failure")

// IsPermanent reports whether err wraps ErrPermanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// OrderPlaced is the payload of an order:placed task.
type OrderPlaced struct {
	OrderID       string    `json:"orderId"`
	SessionID     string    `json:"sessionId"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	PaymentMethod string    `json:"paymentMethod"`
	GrandTotal    int64     `json:"grandTotal"`
	ItemCount     int       `json:"itemCount"`
	PlacedAt      time.Time `json:"placedAt"`
}

// NewOrderPlacedTask builds the asynq task for p.
func NewOrderPlacedTask(p OrderPlaced) (*asynq.Task, error) {
	if p.OrderID == "" {
		return nil, errors.New("tasks: order id is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal order placed: %w", err)
	}
	return asynq.NewTask(TypeOrderPlaced, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// ParseOrderPlaced decodes an order:placed payload.
func ParseOrderPlaced(t *asynq.Task) (OrderPlaced, error) {
	var p OrderPlaced
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return OrderPlaced{}, fmt.Errorf("decode %s: %w", t.Type(), err)
	}
	if p.OrderID == "" {
		return OrderPlaced{}, fmt.Errorf("decode %s: missing order id", t.Type())
	}
	return p, nil
}

// Enqueuer publishes tasks through an asynq client. When Breaker is set,
// enqueueing fails fast with resilience.ErrOpenCircuit while the queue is
// unhealthy.
type Enqueuer struct {
	Client  *asynq.Client
	Queue   string
	Breaker *resilience.Breaker
}

// EnqueueOrderPlaced schedules the confirmation task. The task id is derived
// from the order id so a retried checkout does not enqueue twice.
func (e Enqueuer) EnqueueOrderPlaced(ctx context.Context, p OrderPlaced) error {
	if e.Client == nil {
		return errors.New("tasks: asynq client not configured")
	}
	task, err := NewOrderPlacedTask(p)
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	enqueue := func(ctx context.Context) error {
		_, err := e.Client.EnqueueContext(ctx, task, asynq.Queue(queue), asynq.TaskID(TypeOrderPlaced+":"+p.OrderID))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	if e.Breaker == nil {
		return enqueue(ctx)
	}
	return e.Breaker.Do(ctx, enqueue)
}

// RetryDelay spaces out retries of failed tasks exponentially.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return resilience.Backoff(2*time.Second, n+1, 0.2)
}

// Notifier delivers the order confirmation to the shopper.
type Notifier interface {
	OrderPlaced(ctx context.Context, p OrderPlaced) error
}

// Processor handles order tasks inside the worker.
type Processor struct {
	Logger   zerolog.Logger
	Notifier Notifier
}

// Register binds the processor to mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderPlaced, p.HandleOrderPlaced)
}

// HandleOrderPlaced processes an order:placed task. Malformed payloads are
// not retried.
func (p *Processor) HandleOrderPlaced(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseOrderPlaced(t)
	if err != nil {
		obs.RecordOrderTask("invalid")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if p.Notifier != nil {
		if err := p.Notifier.OrderPlaced(ctx, payload); err != nil {
			if IsPermanent(err) {
				obs.RecordOrderTask("failed")
				p.Logger.Error().Err(err).Str("order_id", payload.OrderID).Msg("order confirmation rejected")
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			obs.RecordOrderTask("retry")
			p.Logger.Warn().Err(err).Str("order_id", payload.OrderID).Msg("order confirmation failed")
			return err
		}
	}
	obs.RecordOrderTask("ok")
	p.Logger.Info().
		Str("order_id", payload.OrderID).
		Str("session_id", payload.SessionID).
		Str("payment_method", payload.PaymentMethod).
		Int64("grand_total", payload.GrandTotal).
		Int("items", payload.ItemCount).
		Msg("order confirmed")
	return nil
}

// LogNotifier writes confirmations to the log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// OrderPlaced implements Notifier.
func (n LogNotifier) OrderPlaced(_ context.Context, p OrderPlaced) error {
	evt := n.Logger.Info().Str("order_id", p.OrderID).Str("name", p.Name)
	if p.Email != "" {
		evt = evt.Str("email", p.Email)
	}
	evt.Msg("order confirmation sent")
	return nil
}
