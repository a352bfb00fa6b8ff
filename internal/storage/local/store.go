// Package local keeps collections as JSON snapshot files, one file per collection.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storage"
)

type Store struct {
	fs  afero.Fs
	dir string

	mu       sync.Mutex
	cache    map[string][]storage.Record
	versions map[string]uint64
	subs     map[string]map[int]*subscription
	nextSub  int
}

// subscription delivers snapshots in write order. Listeners run outside the store
// lock, so a snapshot can arrive after a newer one; such a snapshot is dropped.
type subscription struct {
	mu        sync.Mutex
	delivered bool
	version   uint64
	onChange  func([]storage.Record)
}

func (sub *subscription) deliver(version uint64, recs []storage.Record) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.delivered && version <= sub.version {
		return
	}
	sub.delivered = true
	sub.version = version
	sub.onChange(recs)
}

var (
	_ storage.Store             = (*Store)(nil)
	_ storage.ConditionalPutter = (*Store)(nil)
)

func New(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		fs:    fs,
		dir:   dir,
		cache:    make(map[string][]storage.Record),
		versions: make(map[string]uint64),
		subs:     make(map[string]map[int]*subscription),
	}, nil
}

// NewInMemory returns a store backed by an in-memory filesystem.
func NewInMemory() *Store {
	s, _ := New(afero.NewMemMapFs(), "/data")
	return s
}

func (s *Store) Get(ctx context.Context, collection string) ([]storage.Record, error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	return storage.Clone(recs), nil
}

func (s *Store) Put(ctx context.Context, collection string, rec storage.Record) error {
	return s.mutate(collection, func(recs []storage.Record) ([]storage.Record, error) {
		return storage.Upsert(recs, rec, false), nil
	})
}

func (s *Store) PutFirst(ctx context.Context, collection string, rec storage.Record) error {
	return s.mutate(collection, func(recs []storage.Record) ([]storage.Record, error) {
		return storage.Upsert(recs, rec, true), nil
	})
}

func (s *Store) PutIfField(ctx context.Context, collection string, rec storage.Record, field, want string) error {
	return s.mutate(collection, func(recs []storage.Record) ([]storage.Record, error) {
		for _, cur := range recs {
			if cur.ID != rec.ID {
				continue
			}
			if !storage.FieldEquals(cur.Data, field, want) {
				return nil, storage.ErrConflict
			}
			return storage.Upsert(recs, rec, false), nil
		}
		return nil, storage.ErrNotFound
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.mutate(collection, func(recs []storage.Record) ([]storage.Record, error) {
		out, ok := storage.Remove(recs, id)
		if !ok {
			return nil, storage.ErrNotFound
		}
		return out, nil
	})
}

// Subscribe calls onChange synchronously with the current snapshot and after every write.
// A listener must not write to the same collection.
func (s *Store) Subscribe(ctx context.Context, collection string, onChange func([]storage.Record)) (func(), error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	recs, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextSub
	s.nextSub++
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]*subscription)
	}
	sub := &subscription{onChange: onChange}
	s.subs[collection][id] = sub
	version := s.versions[collection]
	snapshot := storage.Clone(recs)
	s.mu.Unlock()

	sub.deliver(version, snapshot)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[collection], id)
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)

	return func() {
		stop()
		unsubscribe()
	}, nil
}

func (s *Store) mutate(collection string, fn func([]storage.Record) ([]storage.Record, error)) error {
	if err := storage.ValidateCollection(collection); err != nil {
		return err
	}

	s.mu.Lock()
	recs, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next, err := fn(recs)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.save(collection, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cache[collection] = next
	s.versions[collection]++
	version := s.versions[collection]

	listeners := make([]*subscription, 0, len(s.subs[collection]))
	for _, sub := range s.subs[collection] {
		listeners = append(listeners, sub)
	}
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.deliver(version, storage.Clone(next))
	}
	return nil
}

// load must be called with s.mu held.
func (s *Store) load(collection string) ([]storage.Record, error) {
	if recs, ok := s.cache[collection]; ok {
		return recs, nil
	}

	b, err := afero.ReadFile(s.fs, s.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		s.cache[collection] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	var recs []storage.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", collection, err)
	}
	s.cache[collection] = recs
	return recs, nil
}

// save writes to a temp file and renames it over the snapshot.
func (s *Store) save(collection string, recs []storage.Record) error {
	if recs == nil {
		recs = []storage.Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}

	tmp := s.path(collection) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := s.fs.Rename(tmp, s.path(collection)); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}
