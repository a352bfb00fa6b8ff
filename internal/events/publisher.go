package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
)

// Sequencer hands out per-partition sequence numbers for enveloped events.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch               Channel
	seq              Sequencer
	publishEnveloped bool
	producer         string
	now              func() time.Time
}

type PublisherOptions struct {
	PublishEnveloped bool
	Producer         string
}

var _ notify.Notifier = (*Publisher)(nil)

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch Channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = storefrontServiceName
	}
	return &Publisher{
		ch:               ch,
		seq:              seq,
		publishEnveloped: opts.PublishEnveloped,
		producer:         producer,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Notify publishes ev on the events exchange under the routing key for its type.
func (p *Publisher) Notify(ctx context.Context, ev notify.Event) error {
	switch ev.Type {
	case notify.EventOrderPlaced:
		return p.PublishOrderPlaced(ctx, ev)
	case notify.EventOrderStatusChanged:
		return p.PublishOrderStatusChanged(ctx, ev)
	default:
		return fmt.Errorf("no routing key for event %q", ev.Type)
	}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, ev notify.Event) error {
	if !p.publishEnveloped {
		body, err := json.Marshal(LegacyOrderPlaced{
			EventType:          orderPlacedEventName,
			OrderPlacedPayload: newOrderPlacedPayload(ev.Order),
		})
		if err != nil {
			return fmt.Errorf("marshal OrderPlaced: %w", err)
		}
		return p.publishJSON(ctx, OrderPlacedRoutingKey, body)
	}

	seq, err := p.seq.NextSequence(ctx, ev.Order.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := BuildOrderPlacedEnvelope(ev.Order, seq, p.meta(ev), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, body)
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, ev notify.Event) error {
	if !p.publishEnveloped {
		body, err := json.Marshal(LegacyOrderStatusChanged{
			EventType:                 orderStatusChangedEventName,
			OrderStatusChangedPayload: newOrderStatusChangedPayload(ev.Order),
		})
		if err != nil {
			return fmt.Errorf("marshal OrderStatusChanged: %w", err)
		}
		return p.publishJSON(ctx, OrderStatusChangedRoutingKey, body)
	}

	seq, err := p.seq.NextSequence(ctx, ev.Order.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := BuildOrderStatusChangedEnvelope(ev.Order, seq, p.meta(ev), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderStatusChanged envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderStatusChangedRoutingKey, body)
}

func (p *Publisher) meta(ev notify.Event) EnvelopeMetadata {
	return EnvelopeMetadata{
		CorrelationID: ev.CorrelationID,
		Producer:      p.producer,
	}
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
