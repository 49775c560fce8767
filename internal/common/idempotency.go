package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key for write requests.
const IdempotencyHeader = "Idempotency-Key"

const idemPending = "pending"

// Idem rejects repeated write requests that carry the same Idempotency-Key
// within TTL. Keys are scoped to the session, method and path. A request
// that ends in a 5xx or panics releases its key so the client may retry.
type Idem struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (i Idem) key(r *http.Request, header string) string {
	session, _ := SessionID(r.Context())
	sum := sha256.Sum256([]byte(session + "|" + r.Method + "|" + r.URL.Path + "|" + header))
	prefix := i.Prefix
	if prefix == "" {
		prefix = "idem:"
	}
	return prefix + hex.EncodeToString(sum[:])
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := i.key(r, header)
		ok, err := i.R.SetNX(ctx, key, idemPending, i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}

		// A handler that unwinds before writing counts as a server error.
		rec := &statusWriter{ResponseWriter: w, status: http.StatusInternalServerError}
		defer func() {
			bg, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(bg, key).Err()
				return
			}
			_ = i.R.Set(bg, key, strconv.Itoa(rec.status), i.ttl()).Err()
		}()
		next.ServeHTTP(rec, r)
		if !rec.wroteHeader {
			rec.status = http.StatusOK
		}
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	stored, err := i.R.Get(ctx, key).Result()
	if err != nil || stored == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request is already being processed", nil)
		return
	}
	details := map[string]any{}
	if status, err := strconv.Atoi(stored); err == nil {
		details["originalStatus"] = status
	}
	JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", details)
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(p []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(p)
}
