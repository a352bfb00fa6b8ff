package order

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
)

// Collection is the storage collection holding orders.
const Collection = "orders"

type Store struct {
	docs   storage.Store
	logger zerolog.Logger
	now    func() time.Time

	// serialises status changes made through this process; write guards the rest
	mu sync.Mutex
}

func NewStore(docs storage.Store, logger zerolog.Logger) *Store {
	return &Store{docs: docs, logger: logger, now: time.Now}
}

// Record persists a new order. Nothing is written on error.
func (s *Store) Record(ctx context.Context, o Order) error {
	if o.ID == "" {
		return fmt.Errorf("record order: missing id")
	}
	if o.Status != StatusPending {
		return fmt.Errorf("record order %s: %w: new orders must be pending", o.ID, ErrInvalidStatus)
	}

	rec, err := storage.Encode(o.ID, o)
	if err != nil {
		return err
	}
	if err := s.docs.PutFirst(ctx, Collection, rec); err != nil {
		return fmt.Errorf("record order %s: %w", o.ID, err)
	}
	return nil
}

// Remove deletes an order. It only undoes a Record whose surrounding write failed;
// placed orders are otherwise never deleted.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove order %s: %w", id, err)
	}
	return nil
}

// List returns all orders, most recent first.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	recs, err := s.docs.Get(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	orders, err := storage.Decode[Order](recs)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	orders, err := s.List(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

// SetStatus moves a pending order to verified or rejected.
func (s *Store) SetStatus(ctx context.Context, id string, next Status) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := CheckTransition(o.Status, next); err != nil {
		return Order{}, err
	}

	prev := o.Status
	o.Status = next
	o.UpdatedAt = s.now().UTC()

	rec, err := storage.Encode(o.ID, o)
	if err != nil {
		return Order{}, err
	}
	if err := s.write(ctx, rec, prev); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Order{}, fmt.Errorf("%w: order %s was decided elsewhere", ErrTerminal, id)
		}
		return Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	s.logger.Info().Str("order_id", id).Str("status", string(next)).Msg("order status changed")
	return o, nil
}

// write replaces rec only while the stored status is still prev when the backend
// supports it; other instances may be deciding the same order.
func (s *Store) write(ctx context.Context, rec storage.Record, prev Status) error {
	if cp, ok := s.docs.(storage.ConditionalPutter); ok {
		return cp.PutIfField(ctx, Collection, rec, "status", string(prev))
	}
	return s.docs.Put(ctx, Collection, rec)
}

func (s *Store) Subscribe(ctx context.Context, fn func([]Order)) (func(), error) {
	return s.docs.Subscribe(ctx, Collection, func(recs []storage.Record) {
		orders, err := storage.Decode[Order](recs)
		if err != nil {
			s.logger.Error().Err(err).Msg("decode orders snapshot")
			return
		}
		sortNewestFirst(orders)
		fn(orders)
	})
}

func sortNewestFirst(orders []Order) {
	slices.SortStableFunc(orders, func(a, b Order) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}
