package storefront

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
)

// admin loads the session and checks it carries the admin role.
func (s *Service) admin(ctx context.Context, sessionID string) (session.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return session.Session{}, err
	}
	if !sess.Allows(session.RoleAdmin) {
		return session.Session{}, ErrForbidden
	}
	return sess, nil
}

func (s *Service) Orders(ctx context.Context, sessionID string) ([]order.Order, error) {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

// WatchOrders pushes the newest-first order list to fn until ctx is done.
func (s *Service) WatchOrders(ctx context.Context, sessionID string, fn func([]order.Order)) (func(), error) {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.orders.Subscribe(ctx, fn)
}

func (s *Service) SetOrderStatus(ctx context.Context, sessionID, orderID string, status order.Status) (order.Order, error) {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return order.Order{}, err
	}
	o, err := s.orders.SetStatus(ctx, orderID, status)
	if err != nil {
		return order.Order{}, err
	}

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notify.Event{
			Type:      notify.EventOrderStatusChanged,
			SessionID: o.CustomerEmail,
			Order:     o,
		})
	}
	return o, nil
}

func (s *Service) CreateProduct(ctx context.Context, sessionID string, p catalog.Product) (catalog.Product, error) {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return catalog.Product{}, err
	}
	created, err := s.catalog.Create(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	s.logger.Info().Str("product_id", created.ID).Str("name", created.Name).Msg("product created")
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, sessionID string, p catalog.Product) (catalog.Product, error) {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return catalog.Product{}, err
	}
	return s.catalog.Update(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, sessionID, productID string) error {
	if _, err := s.admin(ctx, sessionID); err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, productID); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", productID).Msg("product deleted")
	return nil
}
