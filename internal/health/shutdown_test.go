package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/store/memstore"
)

func TestReadyReportsDrainingAfterShutdown(t *testing.T) {
	handler := health.Handler{Checker: health.Probes{
		Store: memstore.New(),
		Redis: func(context.Context) error { return nil },
	}}
	t.Cleanup(func() { health.SetReady(true) })

	probe := func() (int, health.Report) {
		rr := httptest.NewRecorder()
		handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		var report health.Report
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		return rr.Code, report
	}

	health.SetReady(true)
	code, report := probe()
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", report.Status)

	health.SetReady(false)
	code, report = probe()
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", report.Status)
	require.Empty(t, report.Checks)
}

func TestProbesApplyTimeout(t *testing.T) {
	probes := health.Probes{
		Redis: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	err := probes.PingRedis(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualError(t, probes.PingStore(context.Background(), time.Second), "store not configured")
	require.False(t, errors.Is(err, context.Canceled))
}
