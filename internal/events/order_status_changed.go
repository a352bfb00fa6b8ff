package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	orderStatusChangedEventName    = "OrderStatusChanged"
	orderStatusChangedEventVersion = 1
	orderStatusChangedSchema       = "contracts/events/storefront/OrderStatusChanged.v1.payload.schema.json"
)

type OrderStatusChangedPayload struct {
	OrderID       string       `json:"orderId"`
	CustomerEmail string       `json:"customerEmail"`
	Status        order.Status `json:"status"`
	Timestamp     time.Time    `json:"timestamp"`
}

type OrderStatusChangedEnvelope = EventEnvelope[OrderStatusChangedPayload]

type LegacyOrderStatusChanged struct {
	EventType string `json:"eventType"`
	OrderStatusChangedPayload
}

func newOrderStatusChangedPayload(o order.Order) OrderStatusChangedPayload {
	return OrderStatusChangedPayload{
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		Timestamp:     o.UpdatedAt,
	}
}

func BuildOrderStatusChangedEnvelope(o order.Order, seq int64, meta EnvelopeMetadata, occurredAt time.Time) OrderStatusChangedEnvelope {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	if meta.Producer == "" {
		meta.Producer = storefrontServiceName
	}

	return OrderStatusChangedEnvelope{
		EventName:     orderStatusChangedEventName,
		EventVersion:  orderStatusChangedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      meta.Producer,
		PartitionKey:  o.ID,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        orderStatusChangedSchema,
		Payload:       newOrderStatusChangedPayload(o),
	}
}
