package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/storefront/internal/common"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingStore(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Pinger is satisfied by every store driver.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger pings Redis, typically rdb.Ping(ctx).Err.
type RedisPinger func(ctx context.Context) error

// Probes adapts the product store and Redis into a Checker.
type Probes struct {
	Store Pinger
	Redis RedisPinger
}

// PingStore implements Checker.
func (p Probes) PingStore(ctx context.Context, timeout time.Duration) error {
	if p.Store == nil {
		return errors.New("store not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Store.Ping(ctx)
}

// PingRedis implements Checker.
func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis(ctx)
}

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness. The API flips it off while draining on shutdown.
func SetReady(v bool) { ready.Store(v) }

// Handler serves the liveness and readiness probes.
type Handler struct {
	Checker      Checker
	StoreTimeout time.Duration
	RedisTimeout time.Duration
}

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Live always answers 200 while the process can serve HTTP.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the store and Redis concurrently and answers 503 when either
// fails or the process is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unconfigured"})
		return
	}

	report := h.check(r.Context())
	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, report)
}

func (h Handler) check(ctx context.Context) Report {
	var (
		storeErr error
		redisErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		storeErr = h.Checker.PingStore(ctx, withDefault(h.StoreTimeout, 500*time.Millisecond))
		return storeErr
	})
	g.Go(func() error {
		redisErr = h.Checker.PingRedis(ctx, withDefault(h.RedisTimeout, 300*time.Millisecond))
		return redisErr
	})
	failed := g.Wait() != nil

	report := Report{Status: "ok", Checks: map[string]string{
		"store": probeResult(storeErr),
		"redis": probeResult(redisErr),
	}}
	if failed {
		report.Status = "degraded"
	}
	return report
}

func probeResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func withDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
