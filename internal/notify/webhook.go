// Package notify delivers order confirmations to an external HTTP endpoint.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/storefront/internal/tasks"
)

// TopicOrderPlaced labels order confirmation deliveries.
const TopicOrderPlaced = "order.placed"

// Webhook posts signed order events to URL. It implements tasks.Notifier.
type Webhook struct {
	URL    string
	Secret string
	Client *http.Client
	Now    func() time.Time
}

type envelope struct {
	EventID    string            `json:"eventId"`
	Topic      string            `json:"topic"`
	Data       tasks.OrderPlaced `json:"data"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// OrderPlaced delivers p. A 4xx response is permanent and wraps
// tasks.ErrPermanent; network failures and 5xx responses are retried.
func (w Webhook) OrderPlaced(ctx context.Context, p tasks.OrderPlaced) error {
	if err := ValidateURL(w.URL); err != nil {
		return fmt.Errorf("%w: %v", tasks.ErrPermanent, err)
	}
	ctx, span := otel.Tracer("notify.Webhook").Start(ctx, "Webhook.OrderPlaced")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", p.OrderID), attribute.String("webhook.topic", TopicOrderPlaced))

	body, err := json.Marshal(envelope{EventID: p.OrderID, Topic: TopicOrderPlaced, Data: p, OccurredAt: p.PlacedAt})
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", tasks.ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", tasks.ErrPermanent, err)
	}
	ts := w.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "storefront-webhooks/1.0")
	req.Header.Set("X-Event-ID", p.OrderID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Idempotency-Key", TopicOrderPlaced+":"+p.OrderID)
	if w.Secret != "" {
		req.Header.Set("X-Signature", ComputeSignature(w.Secret, ts, p.OrderID, body))
	}

	client := w.Client
	if client == nil {
		client = NewHTTPClient(5 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: webhook rejected with status %d", tasks.ErrPermanent, resp.StatusCode)
	default:
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
}

func (w Webhook) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// ComputeSignature is HMAC-SHA256 over "<ts>.<eventID>.<body>", hex encoded.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateURL accepts https endpoints, and plain http only for localhost.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		if host := parsed.Hostname(); host == "localhost" || host == "127.0.0.1" {
			return nil
		}
		return errors.New("http webhook only allowed for localhost")
	default:
		return errors.New("webhook url must be http or https")
	}
}

// NewHTTPClient returns a traced client for webhook delivery.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
