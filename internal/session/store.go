package session

import (
	"context"
	"sync"
	"time"
)

// Store persists sessions. Update loads, applies fn and saves; nothing is saved when
// fn returns an error.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	swept    time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if m.ttl > 0 && m.now().After(e.expiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return e.session.clone(), nil
}

// Save also drops expired sessions, at most once per ttl, so abandoned sessions do
// not accumulate.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	m.sessions[s.ID] = memoryEntry{session: s.clone(), expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.swept) < m.ttl {
		return
	}
	m.swept = now
	for id, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Update relies on the Manager serialising calls for the same id.
func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&s); err != nil {
		return Session{}, err
	}
	if err := m.Save(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}
