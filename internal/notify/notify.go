package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type EventType string

const (
	EventOrderPlaced        EventType = "order.placed"
	EventOrderStatusChanged EventType = "order.status_changed"
)

type Event struct {
	Type          EventType
	SessionID     string
	CorrelationID string
	Order         order.Order
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type Sink struct {
	Name     string
	Notifier Notifier
}

// Dispatcher fans events out to every sink in the background. Delivery is best
// effort: failures are logged and never reach the caller.
type Dispatcher struct {
	sinks   []Sink
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(logger zerolog.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, logger: logger, timeout: timeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if ev.CorrelationID == "" {
		ev.CorrelationID = middleware.GetCorrelationID(ctx)
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := sink.Notifier.Notify(sendCtx, ev); err != nil {
				d.logger.Warn().Err(err).
					Str("sink", sink.Name).
					Str("event", string(ev.Type)).
					Str("order_id", ev.Order.ID).
					Msg("notification not delivered")
				return
			}
			d.logger.Debug().Str("sink", sink.Name).Str("order_id", ev.Order.ID).Msg("notification delivered")
		}(sink)
	}
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
