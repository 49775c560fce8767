package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/storefront/internal/common"
)

// Allower decides whether one more event for key fits within max per window.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler rejects requests over the configured rate with 429 RATE_LIMITED.
type Handler struct {
	Limiter Allower
	Config  Config
	// OnError observes limiter failures. Those requests are let through.
	OnError func(error)
}

// Middleware wraps next with the limit check.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		header := w.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}
		header.Set("Retry-After", strconv.Itoa(retryAfterSeconds(resetAt)))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
	})
}

// retryAfterSeconds rounds up so clients never retry before the reset.
func retryAfterSeconds(resetAt time.Time) int {
	wait := time.Until(resetAt)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}

// ClientKey keys requests by client IP.
func ClientKey(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// SessionKey keys requests by shopper session, falling back to client IP.
func SessionKey(r *http.Request) string {
	if session, ok := common.SessionID(r.Context()); ok {
		return "session:" + session
	}
	return ClientKey(r)
}
