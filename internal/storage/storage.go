package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrConflict          = errors.New("record changed concurrently")
)

// Record is a single document inside an ordered collection.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Store is the persistence boundary used by the catalog, order and review stores.
// Get returns records in collection order. Put and PutFirst are upserts: an existing
// record keeps its position, a new one is appended (Put) or prepended (PutFirst).
// Subscribe delivers the current collection immediately and again after every change
// until the returned func is called or ctx is done.
type Store interface {
	Get(ctx context.Context, collection string) ([]Record, error)
	Put(ctx context.Context, collection string, rec Record) error
	PutFirst(ctx context.Context, collection string, rec Record) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, onChange func([]Record)) (func(), error)
}

// ConditionalPutter is implemented by stores that can replace an existing record only
// while one of its top-level string fields still holds want. A mismatch is ErrConflict.
type ConditionalPutter interface {
	PutIfField(ctx context.Context, collection string, rec Record, field, want string) error
}

// FieldEquals reports whether the top-level string field of data equals want.
func FieldEquals(data json.RawMessage, field, want string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	var got string
	if err := json.Unmarshal(fields[field], &got); err != nil {
		return false
	}
	return got == want
}

var collectionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,127}$`)

// ValidateCollection rejects names that cannot be used as a file name or key.
func ValidateCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// Encode marshals v into a record with the given id.
func Encode(id string, v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode record %s: %w", id, err)
	}
	return Record{ID: id, Data: data}, nil
}

// Decode unmarshals every record into a T, keeping collection order.
func Decode[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Clone returns a copy of recs that shares no backing arrays with the input.
func Clone(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, rec := range recs {
		data := make(json.RawMessage, len(rec.Data))
		copy(data, rec.Data)
		out[i] = Record{ID: rec.ID, Data: data}
	}
	return out
}

// Upsert applies Put/PutFirst semantics to an in-memory slice and returns the result.
func Upsert(recs []Record, rec Record, first bool) []Record {
	for i := range recs {
		if recs[i].ID == rec.ID {
			out := Clone(recs)
			out[i] = rec
			return out
		}
	}
	if first {
		return append([]Record{rec}, Clone(recs)...)
	}
	return append(Clone(recs), rec)
}

// Remove drops the record with the given id. The bool reports whether it existed.
func Remove(recs []Record, id string) ([]Record, bool) {
	for i := range recs {
		if recs[i].ID == id {
			out := make([]Record, 0, len(recs)-1)
			out = append(out, Clone(recs[:i])...)
			out = append(out, Clone(recs[i+1:])...)
			return out, true
		}
	}
	return recs, false
}
