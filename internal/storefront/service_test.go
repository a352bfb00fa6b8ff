package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage/local"
)

const (
	adminEmail    = "owner@boutique.test"
	adminPassword = "correct horse"
)

type fakeIdentity struct{}

func (fakeIdentity) Authenticate(_ context.Context, credential string) (session.Identity, error) {
	if credential == "" {
		return session.Identity{}, session.ErrInvalidCredential
	}
	return session.Identity{Email: credential + "@example.test", DisplayName: credential}, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

// flakyDocs fails writes to one collection while failing is set. onWrite runs after
// each successful write to that collection.
type flakyDocs struct {
	storage.Store
	collection string
	failing    bool
	onWrite    func()
}

func (f *flakyDocs) PutFirst(ctx context.Context, collection string, rec storage.Record) error {
	if f.failing && collection == f.collection {
		return errors.New("storage offline")
	}
	if err := f.Store.PutFirst(ctx, collection, rec); err != nil {
		return err
	}
	if f.onWrite != nil && collection == f.collection {
		f.onWrite()
	}
	return nil
}

type fixture struct {
	svc      *Service
	docs     *flakyDocs
	notifier *recordingDispatcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, session.NewMemoryStore(time.Hour))
}

func newFixtureWith(t *testing.T, sessionStore session.Store) fixture {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	docs := &flakyDocs{Store: local.NewInMemory(), collection: order.Collection}
	products := catalog.NewStore(docs, zerolog.Nop())
	require.NoError(t, products.Seed(ctx, catalog.DefaultCollection()))

	sessions := session.NewManager(
		sessionStore,
		fakeIdentity{},
		session.NewAdminAuthenticator(adminEmail, string(hash)),
		zerolog.Nop(),
	)
	notifier := &recordingDispatcher{}
	svc := NewService(sessions, products, order.NewStore(docs, zerolog.Nop()), review.NewStore(docs), notifier, zerolog.Nop())
	return fixture{svc: svc, docs: docs, notifier: notifier}
}

func (f fixture) customer(t *testing.T, name string) session.Session {
	t.Helper()
	s, err := f.svc.SignIn(context.Background(), name)
	require.NoError(t, err)
	return s
}

func (f fixture) admin(t *testing.T) session.Session {
	t.Helper()
	s, err := f.svc.SignInAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	return s
}

func fillCheckout(t *testing.T, svc *Service, sessionID string) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := svc.SetCheckoutInfo(ctx, sessionID, checkout.Info{
		Name:       "Sara Malik",
		Contact:    "+92 300 0000000",
		Address:    "12 Garden Road, Lahore",
		PostalCode: "54000",
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = svc.ProceedToPayment(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = svc.AttachProof(ctx, sessionID, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestService_CheckoutEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	_, err := f.svc.AddToCart(ctx, sara.ID, "1")
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, sara.ID, "2")
	require.NoError(t, err)
	c, err := f.svc.UpdateQuantity(ctx, sara.ID, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count())
	assert.True(t, c.Visible)
	assert.True(t, decimal.NewFromInt(515).Equal(c.Total()))

	fillCheckout(t, f.svc, sara.ID)

	res, err := f.svc.Submit(ctx, sara.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, "sara@example.test", res.Order.CustomerEmail)
	assert.True(t, decimal.NewFromInt(515).Equal(res.Order.TotalAmount))
	assert.Equal(t, checkout.StateCompleted, res.Pipeline.Current())
	assert.Equal(t, res.Order.ID, res.Pipeline.OrderID)
	assert.True(t, res.Cart.IsEmpty())

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notify.EventOrderPlaced, f.notifier.events[0].Type)
	assert.Equal(t, "sara@example.test", f.notifier.events[0].SessionID)

	// the stored session reflects the submission
	stored, err := f.svc.Session(ctx, sara.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cart.IsEmpty())

	boss := f.admin(t)
	orders, err := f.svc.Orders(ctx, boss.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.Order.ID, orders[0].ID)

	verified, err := f.svc.SetOrderStatus(ctx, boss.ID, res.Order.ID, order.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, order.StatusVerified, verified.Status)
	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notify.EventOrderStatusChanged, f.notifier.events[1].Type)

	_, err = f.svc.SetOrderStatus(ctx, boss.ID, res.Order.ID, order.StatusRejected)
	assert.ErrorIs(t, err, order.ErrTerminal)
	assert.Len(t, f.notifier.events, 2)
}

func TestService_SubmitRefusedLeavesSessionAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	t.Run("pipeline not ready", func(t *testing.T) {
		_, err := f.svc.AddToCart(ctx, sara.ID, "3")
		require.NoError(t, err)

		res, err := f.svc.Submit(ctx, sara.ID)
		require.NoError(t, err)
		assert.Nil(t, res.Order)
		assert.Equal(t, checkout.StateCollectingInfo, res.Pipeline.Current())
		assert.Equal(t, 1, res.Cart.Count())
	})

	t.Run("empty cart", func(t *testing.T) {
		_, err := f.svc.RemoveFromCart(ctx, sara.ID, "3")
		require.NoError(t, err)
		fillCheckout(t, f.svc, sara.ID)

		res, err := f.svc.Submit(ctx, sara.ID)
		require.NoError(t, err)
		assert.Nil(t, res.Order)
		assert.Equal(t, checkout.StateCollectingPayment, res.Pipeline.Current())
	})

	assert.Empty(t, f.notifier.events)
}

func TestService_SubmitStoreFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	_, err := f.svc.AddToCart(ctx, sara.ID, "2")
	require.NoError(t, err)
	fillCheckout(t, f.svc, sara.ID)

	f.docs.failing = true
	_, err = f.svc.Submit(ctx, sara.ID)
	require.Error(t, err)

	stored, err := f.svc.Session(ctx, sara.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Cart.Count())
	assert.Equal(t, checkout.StateCollectingPayment, stored.Checkout.Current())
	assert.Empty(t, f.notifier.events)

	// retry once storage is back
	f.docs.failing = false
	res, err := f.svc.Submit(ctx, sara.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
}

func TestService_SubmitSessionConflictWithdrawsOrder(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixtureWith(t, session.NewRedisStore(client, time.Hour))
	sara := f.customer(t, "sara")
	_, err := f.svc.AddToCart(ctx, sara.ID, "2")
	require.NoError(t, err)
	fillCheckout(t, f.svc, sara.ID)

	// another instance writes the session while the order is being recorded
	sessionKey := "storefront:session:" + sara.ID
	f.docs.onWrite = func() {
		v, err := mr.Get(sessionKey)
		require.NoError(t, err)
		require.NoError(t, mr.Set(sessionKey, v))
	}

	_, err = f.svc.Submit(ctx, sara.ID)
	require.ErrorIs(t, err, session.ErrConflict)

	orders, err := f.svc.Orders(ctx, f.admin(t).ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.notifier.events)

	stored, err := f.svc.Session(ctx, sara.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Cart.Count())
	assert.True(t, stored.Checkout.Ready())

	f.docs.onWrite = nil
	res, err := f.svc.Submit(ctx, sara.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Empty(t, res.Cart.Lines)

	orders, err = f.svc.Orders(ctx, f.admin(t).ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.Order.ID, orders[0].ID)
	assert.Len(t, f.notifier.events, 1)
}

func TestService_CloseCheckoutStartsFresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	fillCheckout(t, f.svc, sara.ID)
	p, err := f.svc.CloseCheckout(ctx, sara.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateCollectingInfo, p.Current())
	assert.Empty(t, p.Proof)
	assert.Empty(t, p.Info.Name)
}

func TestService_CustomerIsNotAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	_, err := f.svc.Orders(ctx, sara.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SetOrderStatus(ctx, sara.ID, "VL-1", order.StatusVerified)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, sara.ID, "1"), ErrForbidden)

	_, err = f.svc.Orders(ctx, "no-such-session")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestService_CatalogAdministration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)
	require.NoError(t, f.svc.WatchCatalog(ctx))
	boss := f.admin(t)

	created, err := f.svc.CreateProduct(ctx, boss.ID, catalog.Product{
		Name:        "Rose Noir",
		Brand:       "Vellor Signature",
		Category:    catalog.CategoryFloral,
		Price:       decimal.NewFromInt(170),
		Stock:       4,
		Description: "Dark rose over smoky vetiver.",
	})
	require.NoError(t, err)

	all, err := f.svc.Products(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, created.ID, all[0].ID)

	hits, err := f.svc.Products(ctx, "rose floral")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Rose Noir", hits[0].Name)

	created.Price = decimal.NewFromInt(175)
	updated, err := f.svc.UpdateProduct(ctx, boss.ID, created)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(175).Equal(updated.Price))

	require.NoError(t, f.svc.DeleteProduct(ctx, boss.ID, created.ID))
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, boss.ID, created.ID), catalog.ErrNotFound)

	all, err = f.svc.Products(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_Reviews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sara := f.customer(t, "sara")

	empty, err := f.svc.Reviews(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, empty.Reviews)
	assert.Equal(t, 5, empty.Summary.Rounded)

	_, err = f.svc.AddReview(ctx, sara.ID, "1", 4, "Lasts all evening.")
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, sara.ID, "1", 3, "A bit heavy for summer.")
	require.NoError(t, err)

	got, err := f.svc.Reviews(ctx, "1")
	require.NoError(t, err)
	require.Len(t, got.Reviews, 2)
	assert.Equal(t, "A bit heavy for summer.", got.Reviews[0].Comment)
	assert.Equal(t, "sara", got.Reviews[0].Author)
	assert.Equal(t, 2, got.Summary.Count)

	_, err = f.svc.AddReview(ctx, sara.ID, "1", 9, "Too good")
	assert.ErrorIs(t, err, review.ErrInvalidReview)
	_, err = f.svc.AddReview(ctx, sara.ID, "missing", 5, "Where is it?")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestService_AddUnknownProductToCart(t *testing.T) {
	f := newFixture(t)
	sara := f.customer(t, "sara")

	_, err := f.svc.AddToCart(context.Background(), sara.ID, "nope")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
