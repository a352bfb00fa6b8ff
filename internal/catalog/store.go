package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
)

// Collection is the storage collection holding the catalog.
const Collection = "catalog"

// Store is the catalog backed by a storage.Store. New products go first; updates
// keep their position.
type Store struct {
	docs   storage.Store
	logger zerolog.Logger
	newID  func() string
}

func NewStore(docs storage.Store, logger zerolog.Logger) *Store {
	return &Store{docs: docs, logger: logger, newID: uuid.NewString}
}

func (s *Store) List(ctx context.Context) ([]Product, error) {
	recs, err := s.docs.Get(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return storage.Decode[Product](recs)
}

func (s *Store) Get(ctx context.Context, id string) (Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (s *Store) Create(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p = p.normalize()
	p.ID = s.newID()

	rec, err := storage.Encode(p.ID, p)
	if err != nil {
		return Product{}, err
	}
	if err := s.docs.PutFirst(ctx, Collection, rec); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	if _, err := s.Get(ctx, p.ID); err != nil {
		return Product{}, err
	}
	p = p.normalize()

	rec, err := storage.Encode(p.ID, p)
	if err != nil {
		return Product{}, err
	}
	if err := s.docs.Put(ctx, Collection, rec); err != nil {
		return Product{}, fmt.Errorf("update product %s: %w", p.ID, err)
	}
	return p, nil
}

// Delete removes the product. Orders keep their own line snapshots and are untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.docs.Delete(ctx, Collection, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, fn func([]Product)) (func(), error) {
	return s.docs.Subscribe(ctx, Collection, func(recs []storage.Record) {
		products, err := storage.Decode[Product](recs)
		if err != nil {
			s.logger.Error().Err(err).Msg("decode catalog snapshot")
			return
		}
		fn(products)
	})
}

// Seed writes products in order when the catalog is empty.
func (s *Store) Seed(ctx context.Context, products []Product) error {
	existing, err := s.docs.Get(ctx, Collection)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, p := range products {
		rec, err := storage.Encode(p.ID, p.normalize())
		if err != nil {
			return err
		}
		if err := s.docs.Put(ctx, Collection, rec); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	s.logger.Info().Int("products", len(products)).Msg("catalog seeded")
	return nil
}
