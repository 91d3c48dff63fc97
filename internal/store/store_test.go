package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name string `json:"name"`
	Uses int    `json:"uses"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFileStore_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[testRecord](path, testLogger())

	s.Put("guild-1", "abc", testRecord{Name: "partners", Uses: 3})

	got, ok := s.Get("guild-1", "abc")
	require.True(t, ok)
	assert.Equal(t, "partners", got.Name)
	assert.Equal(t, 3, got.Uses)

	_, ok = s.Get("guild-1", "missing")
	assert.False(t, ok)
	_, ok = s.Get("guild-2", "abc")
	assert.False(t, ok, "records are scoped per guild")
}

func TestFileStore_PutOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[testRecord](path, testLogger())

	s.Put("guild-1", "abc", testRecord{Name: "first"})
	s.Put("guild-1", "abc", testRecord{Name: "second"})

	entries := s.ListByGuild("guild-1")
	require.Len(t, entries, 1, "same key must leave exactly one record")
	assert.Equal(t, "second", entries[0].Value.Name)
}

func TestFileStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[testRecord](path, testLogger())

	s.Put("guild-1", "abc", testRecord{Name: "x"})

	assert.True(t, s.Delete("guild-1", "abc"))
	assert.False(t, s.Delete("guild-1", "abc"), "second delete finds nothing")
	assert.False(t, s.Delete("guild-9", "abc"))

	_, ok := s.Get("guild-1", "abc")
	assert.False(t, ok)
}

func TestFileStore_ListInsertionOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[testRecord](path, testLogger())

	s.Put("guild-1", "c", testRecord{Name: "third"})
	s.Put("guild-1", "a", testRecord{Name: "first"})
	s.Put("guild-1", "b", testRecord{Name: "second"})

	entries := s.ListByGuild("guild-1")
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{entries[0].Key, entries[1].Key, entries[2].Key})

	// Overwriting keeps the original position.
	s.Put("guild-1", "c", testRecord{Name: "third again"})
	entries = s.ListByGuild("guild-1")
	assert.Equal(t, "c", entries[0].Key)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")

	s := NewFileStore[testRecord](path, testLogger())
	want := map[string]testRecord{
		"a": {Name: "alpha", Uses: 1},
		"b": {Name: "beta", Uses: 7},
		"c": {Name: "gamma", Uses: 0},
	}
	for key, record := range want {
		s.Put("guild-1", key, record)
	}
	s.Put("guild-2", "z", testRecord{Name: "other guild"})

	// A fresh instance over the same file must see identical records.
	restarted := NewFileStore[testRecord](path, testLogger())
	entries := restarted.ListByGuild("guild-1")
	require.Len(t, entries, len(want))
	for _, entry := range entries {
		assert.Equal(t, want[entry.Key], entry.Value)
	}

	got, ok := restarted.Get("guild-2", "z")
	require.True(t, ok)
	assert.Equal(t, "other guild", got.Name)
}

func TestFileStore_NestedMappingFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")

	// The on-disk shape is the plain nested mapping, so files written by
	// other tooling in that format load as-is.
	seed := []byte(`{"guild-1":{"abc123":{"name":"partners","uses":3}}}`)
	require.NoError(t, os.WriteFile(path, seed, 0644))

	s := NewFileStore[testRecord](path, testLogger())
	got, ok := s.Get("guild-1", "abc123")
	require.True(t, ok, "nested-mapping file must load")
	assert.Equal(t, "partners", got.Name)
	assert.Equal(t, 3, got.Uses)

	// Writes keep the same shape.
	s.Put("guild-1", "zzz", testRecord{Name: "added", Uses: 1})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]map[string]testRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "partners", decoded["guild-1"]["abc123"].Name)
	assert.Equal(t, "added", decoded["guild-1"]["zzz"].Name)
}

func TestFileStore_OrderSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")

	s := NewFileStore[testRecord](path, testLogger())
	for _, key := range []string{"c", "a", "b", "d"} {
		s.Put("guild-1", key, testRecord{Name: key})
	}

	restarted := NewFileStore[testRecord](path, testLogger())
	entries := restarted.ListByGuild("guild-1")
	require.Len(t, entries, 4)
	got := make([]string, len(entries))
	for i, entry := range entries {
		got[i] = entry.Key
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, got)
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s := NewFileStore[testRecord](path, testLogger())
	assert.Empty(t, s.ListByGuild("guild-1"))
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewFileStore[testRecord](path, testLogger())
	assert.Empty(t, s.ListByGuild("guild-1"))

	// The store must still accept writes after discarding the bad file.
	s.Put("guild-1", "abc", testRecord{Name: "fresh"})
	_, ok := s.Get("guild-1", "abc")
	assert.True(t, ok)
}

func TestFileStore_FlushRewritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	s := NewFileStore[testRecord](path, testLogger())

	s.Put("guild-1", "a", testRecord{Name: "alpha"})
	s.Put("guild-2", "b", testRecord{Name: "beta"})
	s.Delete("guild-1", "a")

	restarted := NewFileStore[testRecord](path, testLogger())
	assert.Empty(t, restarted.ListByGuild("guild-1"))
	assert.Len(t, restarted.ListByGuild("guild-2"), 1)
}
