package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"civicvoice/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, ch <-chan model.Event, timeout time.Duration) model.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return model.Event{}
}

func TestLocalBusForwards(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.Event, 1)
	require.NoError(t, bus.StartForwarder(ctx, func(ev model.Event) { got <- ev }))

	ev := model.Event{Type: model.EventComplaintCreated, ComplaintID: "c1", Status: model.StatusSubmitted}
	require.NoError(t, bus.Publish(context.Background(), ev))
	assert.Equal(t, ev, recvEvent(t, got, time.Second))
}

func TestLocalBusStopsOnCancel(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan model.Event, 4)
	require.NoError(t, bus.StartForwarder(ctx, func(ev model.Event) { calls <- ev }))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.handlers) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), model.Event{ComplaintID: "c2"}))
	assert.Empty(t, calls)
}

func TestLocalBusClosed(t *testing.T) {
	bus := NewLocalBus()
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), model.Event{}), ErrBusClosed)
	assert.ErrorIs(t, bus.StartForwarder(context.Background(), func(model.Event) {}), ErrBusClosed)
	assert.Error(t, NewLocalBus().StartForwarder(context.Background(), nil))
}

// Runs only against a real Redis, e.g. REDIS_ADDR=localhost:6379.
func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := NewRedisBus(ctx, addr, "civicvoice-test-"+time.Now().Format("150405.000"), nil)
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan model.Event, 1)
	require.NoError(t, bus.StartForwarder(ctx, func(ev model.Event) { got <- ev }))

	ev := model.Event{Type: model.EventComplaintAnalyzed, ComplaintID: "c9", Priority: model.PriorityHigh, At: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, bus.Publish(ctx, ev))
	assert.Equal(t, ev, recvEvent(t, got, 3*time.Second))
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(context.Background(), "", "", nil)
	assert.Error(t, err)
}
