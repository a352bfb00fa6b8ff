//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/testutil"
)

func TestPublisher_OrderPlacedReachesBoundQueue(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	amqpURL := testutil.StartRabbitMQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := events.DialRabbit(amqpURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	pub, err := events.NewPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{PublishEnveloped: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.OrderPlacedRoutingKey, events.EventsExchange, false, nil))

	msgs, err := ch.Consume(q.Name, "storefront-it", true, true, false, false, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	o := order.Order{
		ID:            order.NewID(now),
		CustomerEmail: "sara@example.test",
		Items:         []order.Item{{ProductID: "2", Name: "Azure Breeze", Price: decimal.NewFromInt(145), Quantity: 2}},
		TotalAmount:   decimal.NewFromInt(290),
		Status:        order.StatusPending,
		PaymentMethod: order.DefaultPaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, pub.Notify(ctx, notify.Event{Type: notify.EventOrderPlaced, CorrelationID: "cid-it", Order: o}))
	}

	var got []events.OrderPlacedEnvelope
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			var env events.OrderPlacedEnvelope
			require.NoError(t, json.Unmarshal(msg.Body, &env))
			assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
			got = append(got, env)
		case <-ctx.Done():
			t.Fatal("timed out waiting for OrderPlaced")
		}
	}

	assert.Equal(t, o.ID, got[0].PartitionKey)
	assert.Equal(t, "cid-it", got[0].CorrelationID)
	assert.Equal(t, int64(1), *got[0].Sequence)
	assert.Equal(t, int64(2), *got[1].Sequence)
	assert.True(t, decimal.NewFromInt(290).Equal(got[0].Payload.TotalAmount))
}
