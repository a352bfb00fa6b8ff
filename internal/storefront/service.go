// Package storefront runs the shopper and administrator use cases on top of the
// session, catalog, order and review stores.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
)

var ErrForbidden = errors.New("session role not allowed")

type Service struct {
	sessions  *session.Manager
	catalog   *catalog.Store
	orders    *order.Store
	reviews   *review.Store
	submitter *checkout.Submitter
	notifier  checkout.Dispatcher
	logger    zerolog.Logger

	mu       sync.RWMutex
	products []catalog.Product
	watching bool
}

func NewService(
	sessions *session.Manager,
	products *catalog.Store,
	orders *order.Store,
	reviews *review.Store,
	notifier checkout.Dispatcher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessions:  sessions,
		catalog:   products,
		orders:    orders,
		reviews:   reviews,
		submitter: checkout.NewSubmitter(orders, notifier, logger),
		notifier:  notifier,
		logger:    logger,
	}
}

// WatchCatalog keeps an in-process copy of the catalog for search until ctx is done.
func (s *Service) WatchCatalog(ctx context.Context) error {
	_, err := s.catalog.Subscribe(ctx, func(products []catalog.Product) {
		s.mu.Lock()
		s.products = products
		s.watching = true
		s.mu.Unlock()
		s.logger.Debug().Int("products", len(products)).Msg("catalog refreshed")
	})
	if err != nil {
		return fmt.Errorf("watch catalog: %w", err)
	}
	return nil
}

func (s *Service) allProducts(ctx context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	if s.watching {
		products := s.products
		s.mu.RUnlock()
		return products, nil
	}
	s.mu.RUnlock()
	return s.catalog.List(ctx)
}

// Session

func (s *Service) SignIn(ctx context.Context, credential string) (session.Session, error) {
	return s.sessions.SignIn(ctx, credential)
}

func (s *Service) SignInAdmin(ctx context.Context, email, password string) (session.Session, error) {
	return s.sessions.SignInAdmin(ctx, email, password)
}

func (s *Service) Session(ctx context.Context, sessionID string) (session.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.SignOut(ctx, sessionID)
}

// Catalog

func (s *Service) Products(ctx context.Context, query string) ([]catalog.Product, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(products, query), nil
}

func (s *Service) Suggestions(ctx context.Context, query string) ([]catalog.Product, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Suggest(products, query), nil
}

func (s *Service) Product(ctx context.Context, id string) (catalog.Product, error) {
	return s.catalog.Get(ctx, id)
}

// Cart

func (s *Service) AddToCart(ctx context.Context, sessionID, productID string) (cart.Cart, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return cart.Cart{}, err
	}
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Cart.Add(p)
		return nil
	})
	if err != nil {
		return cart.Cart{}, err
	}
	return sess.Cart, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, sessionID, productID string) (cart.Cart, error) {
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Cart.Remove(productID)
		return nil
	})
	if err != nil {
		return cart.Cart{}, err
	}
	return sess.Cart, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, delta int) (cart.Cart, error) {
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.Cart.UpdateQuantity(productID, delta)
		return nil
	})
	if err != nil {
		return cart.Cart{}, err
	}
	return sess.Cart, nil
}

// Checkout. The bool results report whether the step was accepted; a refused step
// leaves the pipeline as it was.

func (s *Service) Checkout(ctx context.Context, sessionID string) (checkout.Pipeline, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Pipeline{}, err
	}
	return sess.Checkout, nil
}

func (s *Service) SetCheckoutInfo(ctx context.Context, sessionID string, info checkout.Info) (checkout.Pipeline, bool, error) {
	return s.step(ctx, sessionID, func(p *checkout.Pipeline) bool { return p.SetInfo(info) })
}

func (s *Service) ProceedToPayment(ctx context.Context, sessionID string) (checkout.Pipeline, bool, error) {
	return s.step(ctx, sessionID, (*checkout.Pipeline).Proceed)
}

func (s *Service) AttachProof(ctx context.Context, sessionID, proof string) (checkout.Pipeline, bool, error) {
	return s.step(ctx, sessionID, func(p *checkout.Pipeline) bool { return p.AttachProof(proof) })
}

// CloseCheckout resets the pipeline. A completed pipeline must be closed before the
// next order can start.
func (s *Service) CloseCheckout(ctx context.Context, sessionID string) (checkout.Pipeline, error) {
	p, _, err := s.step(ctx, sessionID, func(p *checkout.Pipeline) bool {
		p.Close()
		return true
	})
	return p, err
}

func (s *Service) step(ctx context.Context, sessionID string, fn func(*checkout.Pipeline) bool) (checkout.Pipeline, bool, error) {
	var ok bool
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		ok = fn(&sess.Checkout)
		return nil
	})
	if err != nil {
		return checkout.Pipeline{}, false, err
	}
	return sess.Checkout, ok, nil
}

type SubmitResult struct {
	Order    *order.Order
	Pipeline checkout.Pipeline
	Cart     cart.Cart
}

// Submit places the order for the session. Result.Order is nil when the pipeline is not
// ready or the cart is empty. A failed order write is returned as an error and the
// session is left unchanged. When the session cannot be saved after the order was
// recorded, the order is removed again so a retry cannot place it twice.
func (s *Service) Submit(ctx context.Context, sessionID string) (SubmitResult, error) {
	var placed *order.Order
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		placed = nil
		o, err := s.submitter.Place(ctx, &sess.Checkout, &sess.Cart, checkout.Customer{
			Email:       sess.Email,
			DisplayName: sess.DisplayName,
		})
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		if placed != nil {
			s.withdraw(ctx, placed.ID, err)
		}
		return SubmitResult{}, err
	}
	if placed != nil {
		s.submitter.Announce(ctx, *placed)
	}
	return SubmitResult{Order: placed, Pipeline: sess.Checkout, Cart: sess.Cart}, nil
}

func (s *Service) withdraw(ctx context.Context, orderID string, cause error) {
	// the request may already be cancelled; the removal must still happen
	if err := s.orders.Remove(context.WithoutCancel(ctx), orderID); err != nil {
		s.logger.Error().Err(err).AnErr("cause", cause).Str("order_id", orderID).
			Msg("order recorded but session not saved, removal failed")
		return
	}
	s.logger.Warn().Err(cause).Str("order_id", orderID).Msg("session not saved, order withdrawn")
}

// Reviews

type ProductReviews struct {
	Reviews []review.Review `json:"reviews"`
	Summary review.Summary  `json:"summary"`
}

func (s *Service) Reviews(ctx context.Context, productID string) (ProductReviews, error) {
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return ProductReviews{}, err
	}
	reviews, err := s.reviews.List(ctx, productID)
	if err != nil {
		return ProductReviews{}, err
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ProductReviews{Reviews: reviews, Summary: review.Summarize(reviews)}, nil
}

func (s *Service) AddReview(ctx context.Context, sessionID, productID string, rating int, comment string) (review.Review, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return review.Review{}, err
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return review.Review{}, err
	}
	return s.reviews.Add(ctx, review.Review{
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
		Author:    sess.DisplayName,
	})
}
