package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	s := Session{ID: "abc", Role: RoleCustomer, Email: "sara@example.com"}
	s.Cart.Add(catalog.Product{ID: "1", Name: "Azure Breeze", Price: decimal.NewFromInt(145)})
	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists("storefront:session:abc"))
	assert.Equal(t, 30*time.Minute, mr.TTL("storefront:session:abc"))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", got.Email)
	require.Len(t, got.Cart.Lines, 1)
	assert.True(t, got.Cart.Total().Equal(decimal.NewFromInt(145)))

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Update(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	require.NoError(t, store.Save(ctx, Session{ID: "abc"}))

	updated, err := store.Update(ctx, "abc", func(s *Session) error {
		s.Cart.Add(catalog.Product{ID: "2", Price: decimal.NewFromInt(50)})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Cart.Count())

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cart.Count())

	_, err = store.Update(ctx, "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(ctx, Session{ID: "abc"}))

	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}
