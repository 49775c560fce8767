package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/resilience"
)

type recordingNotifier struct {
	got []OrderPlaced
	err error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, p OrderPlaced) error {
	n.got = append(n.got, p)
	return n.err
}

func samplePayload() OrderPlaced {
	return OrderPlaced{
		OrderID:       "ord-1",
		SessionID:     "sess-1",
		Name:          "Asha",
		PaymentMethod: "cod",
		GrandTotal:    1200,
		ItemCount:     3,
		PlacedAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOrderPlacedTaskRoundTrip(t *testing.T) {
	task, err := NewOrderPlacedTask(samplePayload())
	require.NoError(t, err)
	require.Equal(t, TypeOrderPlaced, task.Type())

	got, err := ParseOrderPlaced(task)
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)

	_, err = NewOrderPlacedTask(OrderPlaced{})
	require.Error(t, err)
}

func TestProcessorHandlesOrderPlaced(t *testing.T) {
	var buf bytes.Buffer
	notifier := &recordingNotifier{}
	p := &Processor{Logger: zerolog.New(&buf), Notifier: notifier}

	task, err := NewOrderPlacedTask(samplePayload())
	require.NoError(t, err)
	require.NoError(t, p.HandleOrderPlaced(context.Background(), task))
	require.Len(t, notifier.got, 1)
	require.Contains(t, buf.String(), "order confirmed")
}

func TestProcessorSkipsRetryForMalformedPayload(t *testing.T) {
	p := &Processor{Logger: zerolog.Nop()}
	err := p.HandleOrderPlaced(context.Background(), asynq.NewTask(TypeOrderPlaced, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorRetriesNotifierFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	p := &Processor{Logger: zerolog.Nop(), Notifier: notifier}
	task, err := NewOrderPlacedTask(samplePayload())
	require.NoError(t, err)

	err = p.HandleOrderPlaced(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessorSkipsRetryForPermanentFailures(t *testing.T) {
	notifier := &recordingNotifier{err: fmt.Errorf("%w: endpoint rejected", ErrPermanent)}
	p := &Processor{Logger: zerolog.Nop(), Notifier: notifier}
	task, err := NewOrderPlacedTask(samplePayload())
	require.NoError(t, err)

	err = p.HandleOrderPlaced(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestEnqueuerRequiresClient(t *testing.T) {
	require.Error(t, Enqueuer{}.EnqueueOrderPlaced(context.Background(), samplePayload()))
}

func TestEnqueuerOpensBreakerWhenQueueIsDown(t *testing.T) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer func() { _ = client.Close() }()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "task_queue_test", MinRequests: 1, OpenFor: time.Hour})
	enq := Enqueuer{Client: client, Breaker: breaker}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := enq.EnqueueOrderPlaced(ctx, samplePayload())
	require.Error(t, err)
	require.NotErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, resilience.Open, breaker.State())

	err = enq.EnqueueOrderPlaced(ctx, samplePayload())
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}

func TestRetryDelayGrows(t *testing.T) {
	first := RetryDelay(0, nil, nil)
	third := RetryDelay(2, nil, nil)
	require.GreaterOrEqual(t, first, 1600*time.Millisecond)
	require.LessOrEqual(t, first, 2400*time.Millisecond)
	require.Greater(t, third, first)
}
