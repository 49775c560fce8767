package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const sessionIDKey ctxKey = "session/id"

// SessionHeader carries the shopper session resolved by the upstream identity layer.
const SessionHeader = "X-Session-ID"

// WithSessionID stores the shopper session identifier on the provided context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the shopper session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// SessionMiddleware copies the session header onto the request context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
			r = r.WithContext(WithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests without a session identifier.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionID(r.Context()); !ok {
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
