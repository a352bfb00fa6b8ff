package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestUpsert(t *testing.T) {
	base := []Record{
		{ID: "a", Data: json.RawMessage(`1`)},
		{ID: "b", Data: json.RawMessage(`2`)},
	}

	t.Run("append new", func(t *testing.T) {
		got := Upsert(base, Record{ID: "c", Data: json.RawMessage(`3`)}, false)
		assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	})

	t.Run("prepend new", func(t *testing.T) {
		got := Upsert(base, Record{ID: "c", Data: json.RawMessage(`3`)}, true)
		assert.Equal(t, []string{"c", "a", "b"}, ids(got))
	})

	t.Run("replace keeps position", func(t *testing.T) {
		got := Upsert(base, Record{ID: "b", Data: json.RawMessage(`20`)}, true)
		assert.Equal(t, []string{"a", "b"}, ids(got))
		assert.JSONEq(t, `20`, string(got[1].Data))
		assert.JSONEq(t, `2`, string(base[1].Data), "input must not be mutated")
	})
}

func TestRemove(t *testing.T) {
	base := []Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got, ok := Remove(base, "b")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	_, ok = Remove(base, "zzz")
	assert.False(t, ok)
}

func TestEncodeDecode(t *testing.T) {
	type doc struct {
		Name string `json:"name"`
	}
	rec, err := Encode("x", doc{Name: "rose"})
	require.NoError(t, err)

	docs, err := Decode[doc]([]Record{rec})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "rose", docs[0].Name)

	_, err = Decode[doc]([]Record{{ID: "bad", Data: json.RawMessage(`{`)}})
	assert.Error(t, err)
}

func TestValidateCollection(t *testing.T) {
	for _, name := range []string{"catalog", "orders", "reviews_1", "reviews_0b8e-11"} {
		assert.NoError(t, ValidateCollection(name), name)
	}
	for _, name := range []string{"", "../etc", "a/b", "with space"} {
		assert.ErrorIs(t, ValidateCollection(name), ErrInvalidCollection, name)
	}
}

func TestFieldEquals(t *testing.T) {
	data := json.RawMessage(`{"status":"pending","total":"185"}`)
	assert.True(t, FieldEquals(data, "status", "pending"))
	assert.False(t, FieldEquals(data, "status", "verified"))
	assert.False(t, FieldEquals(data, "missing", ""))
	assert.False(t, FieldEquals(json.RawMessage(`{"status":1}`), "status", "1"))
	assert.False(t, FieldEquals(json.RawMessage(`[`), "status", "pending"))
}
