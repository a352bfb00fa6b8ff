// Package postgres stores collections in a documents table and pushes changes to
// subscribers through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
)

// ChangeChannel is the NOTIFY channel written by the documents trigger. The payload is
// the collection name.
const ChangeChannel = "documents_changed"

// DBPool is the subset of pgxpool.Pool used by the store.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Listener blocks delivering NOTIFY payloads for channel until ctx is done or the
// connection fails. onListening runs once LISTEN is in effect, before any payload.
type Listener interface {
	Listen(ctx context.Context, channel string, onListening func(), fn func(payload string)) error
}

type Store struct {
	pool     DBPool
	listener Listener
	logger   zerolog.Logger
	retry    time.Duration

	mu      sync.Mutex
	subs    map[string]map[int]*subscription
	nextSub int
	fetches uint64
}

// subscription drops snapshots fetched before the one it last delivered.
type subscription struct {
	mu       sync.Mutex
	fetch    uint64
	onChange func([]storage.Record)
}

func (sub *subscription) deliver(fetch uint64, recs []storage.Record) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if fetch <= sub.fetch {
		return
	}
	sub.fetch = fetch
	sub.onChange(recs)
}

var (
	_ storage.Store             = (*Store)(nil)
	_ storage.ConditionalPutter = (*Store)(nil)
)

func NewStore(pool DBPool, listener Listener, logger zerolog.Logger) *Store {
	return &Store{
		pool:     pool,
		listener: listener,
		logger:   logger,
		retry:    time.Second,
		subs:     make(map[string]map[int]*subscription),
	}
}

func (s *Store) Get(ctx context.Context, collection string) ([]storage.Record, error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		ORDER BY position, id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, storage.Record{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, collection string, rec storage.Record) error {
	return s.upsert(ctx, collection, rec, `COALESCE(MAX(position), 0) + 1`)
}

func (s *Store) PutFirst(ctx context.Context, collection string, rec storage.Record) error {
	return s.upsert(ctx, collection, rec, `COALESCE(MIN(position), 0) - 1`)
}

func (s *Store) upsert(ctx context.Context, collection string, rec storage.Record, positionExpr string) error {
	if err := storage.ValidateCollection(collection); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, position, data)
		VALUES ($1, $2, (SELECT `+positionExpr+` FROM documents WHERE collection = $1), $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, collection, rec.ID, []byte(rec.Data))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, rec.ID, err)
	}
	return nil
}

// PutIfField replaces rec only while data->>field still equals want, which keeps
// concurrent writers on other instances from overwriting each other.
func (s *Store) PutIfField(ctx context.Context, collection string, rec storage.Record, field, want string) error {
	if err := storage.ValidateCollection(collection); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET data = $3, updated_at = now()
		WHERE collection = $1 AND id = $2 AND data->>$4 = $5
	`, collection, rec.ID, []byte(rec.Data), field, want)
	if err != nil {
		return fmt.Errorf("conditional update %s/%s: %w", collection, rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := storage.ValidateCollection(collection); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Subscribe registers onChange, then loads the current snapshot and hands it over
// before returning. Later changes arrive from Run on the listener goroutine.
func (s *Store) Subscribe(ctx context.Context, collection string, onChange func([]storage.Record)) (func(), error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	sub := &subscription{onChange: onChange}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]*subscription)
	}
	s.subs[collection][id] = sub
	s.fetches++
	fetch := s.fetches
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[collection], id)
			s.mu.Unlock()
		})
	}

	recs, err := s.Get(ctx, collection)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.deliver(fetch, recs)

	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

// Run listens for document changes until ctx is done, reconnecting after failures.
// Every subscribed collection is reloaded once LISTEN is in effect, so changes made
// while disconnected are not lost.
func (s *Store) Run(ctx context.Context) error {
	if s.listener == nil {
		<-ctx.Done()
		return nil
	}

	backoff := s.retry
	for {
		err := s.listener.Listen(ctx, ChangeChannel,
			func() {
				backoff = s.retry
				s.resync(ctx)
			},
			func(collection string) {
				s.dispatch(ctx, collection)
			})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("document listener stopped")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Store) resync(ctx context.Context) {
	s.mu.Lock()
	collections := make([]string, 0, len(s.subs))
	for c, subs := range s.subs {
		if len(subs) > 0 {
			collections = append(collections, c)
		}
	}
	s.mu.Unlock()

	for _, c := range collections {
		s.dispatch(ctx, c)
	}
}

func (s *Store) dispatch(ctx context.Context, collection string) {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs[collection]))
	for _, sub := range s.subs[collection] {
		subs = append(subs, sub)
	}
	s.fetches++
	fetch := s.fetches
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	recs, err := s.Get(ctx, collection)
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("reload after change")
		return
	}
	for _, sub := range subs {
		sub.deliver(fetch, storage.Clone(recs))
	}
}
