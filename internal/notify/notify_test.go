package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (n *recordingNotifier) Notify(ctx context.Context, ev Event) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestDispatcher_FansOutToAllSinks(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("unreachable")}
	d := NewDispatcher(zerolog.Nop(), time.Second, Sink{Name: "a", Notifier: a}, Sink{Name: "b", Notifier: b})

	d.Dispatch(context.Background(), Event{Type: EventOrderPlaced, Order: order.Order{ID: "VL-1"}})
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, "VL-1", a.events[0].Order.ID)
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	slow := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(zerolog.Nop(), time.Second, Sink{Name: "slow", Notifier: slow})

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), Event{Type: EventOrderPlaced})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a slow sink")
	}

	close(slow.block)
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1, slow.count())
}

func TestDispatcher_SurvivesCancelledRequestContext(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(zerolog.Nop(), time.Second, Sink{Name: "n", Notifier: n})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, Event{Type: EventOrderPlaced})
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 1, n.count())
}

func TestDispatcher_TimeoutAppliesPerSink(t *testing.T) {
	stuck := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(zerolog.Nop(), 20*time.Millisecond, Sink{Name: "stuck", Notifier: stuck})

	d.Dispatch(context.Background(), Event{Type: EventOrderPlaced})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, 0, stuck.count())
}

func TestDispatcher_TakesCorrelationIDFromContext(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(zerolog.Nop(), time.Second, Sink{Name: "n", Notifier: n})

	ctx := middleware.WithCorrelationID(context.Background(), "cid-42")
	d.Dispatch(ctx, Event{Type: EventOrderPlaced})
	d.Dispatch(ctx, Event{Type: EventOrderPlaced, CorrelationID: "explicit"})
	require.NoError(t, d.Wait(context.Background()))

	require.Equal(t, 2, n.count())
	got := []string{n.events[0].CorrelationID, n.events[1].CorrelationID}
	assert.ElementsMatch(t, []string{"cid-42", "explicit"}, got)
}
