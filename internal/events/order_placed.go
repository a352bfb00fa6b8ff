package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	orderPlacedEventName    = "OrderPlaced"
	orderPlacedEventVersion = 1
	orderPlacedSchema       = "contracts/events/storefront/OrderPlaced.v1.payload.schema.json"
)

type OrderLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderPlacedPayload leaves out contact details and the payment proof.
type OrderPlacedPayload struct {
	OrderID       string          `json:"orderId"`
	CustomerEmail string          `json:"customerEmail"`
	Items         []OrderLine     `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	Timestamp     time.Time       `json:"timestamp"`
}

type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

// LegacyOrderPlaced is the flat body published when envelopes are disabled.
type LegacyOrderPlaced struct {
	EventType string `json:"eventType"`
	OrderPlacedPayload
}

func newOrderPlacedPayload(o order.Order) OrderPlacedPayload {
	items := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return OrderPlacedPayload{
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		Timestamp:     o.CreatedAt,
	}
}

func BuildOrderPlacedEnvelope(o order.Order, seq int64, meta EnvelopeMetadata, occurredAt time.Time) OrderPlacedEnvelope {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	if meta.Producer == "" {
		meta.Producer = storefrontServiceName
	}

	return OrderPlacedEnvelope{
		EventName:     orderPlacedEventName,
		EventVersion:  orderPlacedEventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      meta.Producer,
		PartitionKey:  o.ID,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        orderPlacedSchema,
		Payload:       newOrderPlacedPayload(o),
	}
}
