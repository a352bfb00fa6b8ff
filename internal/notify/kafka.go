package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes order events keyed by order id so one order's events stay ordered.
type Kafka struct {
	writer MessageWriter
}

func NewKafka(writer MessageWriter) *Kafka {
	return &Kafka{writer: writer}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

type kafkaPayload struct {
	Event           EventType   `json:"event"`
	SessionID       string      `json:"sessionId"`
	Order           order.Order `json:"order"`
	HasPaymentProof bool        `json:"hasPaymentProof"`
}

// Notify leaves the payment screenshot out of the message; a data URL can exceed
// the writer's batch size.
func (k *Kafka) Notify(ctx context.Context, ev Event) error {
	o := ev.Order
	hasProof := o.TransactionScreenshot != ""
	o.TransactionScreenshot = ""

	value, err := json.Marshal(kafkaPayload{Event: ev.Type, SessionID: ev.SessionID, Order: o, HasPaymentProof: hasProof})
	if err != nil {
		return fmt.Errorf("marshal kafka message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.Order.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.Type)},
			{Key: "correlationId", Value: []byte(ev.CorrelationID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
