package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
)

type Manager struct {
	store    Store
	identity IdentityProvider
	admin    *AdminAuthenticator
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
	locks    keyedMutex
}

func NewManager(store Store, identity IdentityProvider, admin *AdminAuthenticator, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		identity: identity,
		admin:    admin,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		locks:    keyedMutex{locks: make(map[string]*refLock)},
	}
}

// SignIn exchanges an identity-provider credential for a customer session.
func (m *Manager) SignIn(ctx context.Context, credential string) (Session, error) {
	ident, err := m.identity.Authenticate(ctx, credential)
	if err != nil {
		m.logger.Info().Err(err).Msg("customer sign-in rejected")
		return Session{}, err
	}
	return m.start(ctx, RoleCustomer, ident)
}

func (m *Manager) SignInAdmin(ctx context.Context, email, password string) (Session, error) {
	ident, err := m.admin.Authenticate(email, password)
	if err != nil {
		m.logger.Warn().Err(err).Msg("admin sign-in rejected")
		return Session{}, err
	}
	return m.start(ctx, RoleAdmin, ident)
}

func (m *Manager) start(ctx context.Context, role Role, ident Identity) (Session, error) {
	s := Session{
		ID:          m.newID(),
		Role:        role,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Checkout:    checkout.New(),
		CreatedAt:   m.now().UTC(),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	m.logger.Info().Str("role", string(role)).Str("email", ident.Email).Msg("session started")
	return s, nil
}

func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	return m.store.Get(ctx, id)
}

// Update runs fn on the stored session. Calls for the same session never overlap
// within this process.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()
	return m.store.Update(ctx, id, fn)
}

func (m *Manager) SignOut(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

type refLock struct {
	sync.Mutex
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
