package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type OrderRecorder interface {
	Record(ctx context.Context, o order.Order) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type Customer struct {
	Email       string
	DisplayName string
}

type Submitter struct {
	orders   OrderRecorder
	notifier Dispatcher
	logger   zerolog.Logger
	now      func() time.Time
	newID    func(time.Time) string
}

func NewSubmitter(orders OrderRecorder, notifier Dispatcher, logger zerolog.Logger) *Submitter {
	return &Submitter{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    order.NewID,
	}
}

// Submit turns a ready pipeline and a non-empty cart into a pending order.
//
// It returns nil, nil when the pipeline is not ready or the cart is empty. When the
// order store fails the error is returned and neither the cart nor the pipeline
// changes. On success the cart is cleared, the pipeline is completed and the
// notification is sent in the background.
func (s *Submitter) Submit(ctx context.Context, p *Pipeline, c *cart.Cart, customer Customer) (*order.Order, error) {
	o, err := s.Place(ctx, p, c, customer)
	if err != nil || o == nil {
		return o, err
	}
	s.Announce(ctx, *o)
	return o, nil
}

// Place is Submit without the notification. Callers that persist the cart and
// pipeline afterwards call Announce once that write has succeeded.
func (s *Submitter) Place(ctx context.Context, p *Pipeline, c *cart.Cart, customer Customer) (*order.Order, error) {
	if !p.Ready() || c.IsEmpty() {
		return nil, nil
	}

	now := s.now().UTC()
	info := p.Info.trimmed()
	o := order.Order{
		ID:                    s.newID(now),
		CustomerName:          info.Name,
		CustomerEmail:         customer.Email,
		WhatsappNumber:        info.Contact,
		Address:               info.Address,
		PostalCode:            info.PostalCode,
		Items:                 snapshot(c.Lines),
		TotalAmount:           c.Total(),
		Status:                order.StatusPending,
		PaymentMethod:         order.DefaultPaymentMethod,
		TransactionScreenshot: p.Proof,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.orders.Record(ctx, o); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	c.Clear()
	p.complete(o.ID)

	s.logger.Info().
		Str("order_id", o.ID).
		Str("customer", o.CustomerEmail).
		Str("total", o.TotalAmount.String()).
		Int("items", len(o.Items)).
		Msg("order placed")
	return &o, nil
}

// Announce dispatches the order placed notification.
func (s *Submitter) Announce(ctx context.Context, o order.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, notify.Event{
		Type:      notify.EventOrderPlaced,
		SessionID: o.CustomerEmail,
		Order:     o,
	})
}

func snapshot(lines []cart.Line) []order.Item {
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Brand:     l.Brand,
			Category:  l.Category,
			Price:     l.Price,
			ImageURL:  l.ImageURL,
			Quantity:  l.Quantity,
		})
	}
	return items
}
