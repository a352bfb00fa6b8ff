//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage/postgres"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/testutil"
)

func TestPostgresStore_CatalogAndOrders(t *testing.T) {
	dsn := testutil.StartPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := postgres.NewStore(pool, postgres.NewPoolListener(pool), zerolog.Nop())
	runDone := make(chan error, 1)
	go func() { runDone <- store.Run(ctx) }()

	products := catalog.NewStore(store, zerolog.Nop())
	require.NoError(t, products.Seed(ctx, catalog.DefaultCollection()))
	// seeding twice is a no-op
	require.NoError(t, products.Seed(ctx, catalog.DefaultCollection()))

	updates := make(chan []catalog.Product, 8)
	_, err = products.Subscribe(ctx, func(p []catalog.Product) {
		select {
		case updates <- p:
		default:
		}
	})
	require.NoError(t, err)
	initial := <-updates
	require.Len(t, initial, 3)
	assert.Equal(t, "Midnight Velvet", initial[0].Name)

	created, err := products.Create(ctx, catalog.Product{
		Name:     "Rose Noir",
		Category: catalog.CategoryFloral,
		Price:    decimal.NewFromInt(170),
	})
	require.NoError(t, err)

	// Run may still be acquiring its LISTEN connection, so touch the row until a
	// snapshot with the new product arrives.
	waitForCatalog(t, updates, 4, func() {
		_, err := products.Update(ctx, created)
		require.NoError(t, err)
	})

	created.Name = "Rose Noir Intense"
	_, err = products.Update(ctx, created)
	require.NoError(t, err)
	all, err := products.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rose Noir Intense", all[0].Name)

	orders := order.NewStore(store, zerolog.Nop())
	now := time.Now().UTC()
	require.NoError(t, orders.Record(ctx, order.Order{
		ID:          order.NewID(now),
		Status:      order.StatusPending,
		TotalAmount: decimal.NewFromInt(170),
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	list, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	verified, err := orders.SetStatus(ctx, list[0].ID, order.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, order.StatusVerified, verified.Status)

	cancel()
	require.NoError(t, <-runDone)
}

func waitForCatalog(t *testing.T, updates <-chan []catalog.Product, want int, retrigger func()) {
	t.Helper()

	deadline := time.After(15 * time.Second)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case got := <-updates:
			if len(got) == want {
				return
			}
		case <-tick.C:
			retrigger()
		case <-deadline:
			t.Fatalf("no catalog snapshot with %d products", want)
		}
	}
}
