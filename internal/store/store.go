// Package store implements the durable key-value layer backing the invite
// ledger and the role mapping table: guild id → (key → record), one store
// instance per record type.
//
// The default backend is a whole-file JSON store: every mutation rewrites
// the complete file before returning, so within one process a read always
// sees the last write. A missing or unreadable file on startup is treated
// as an empty store. Write failures are logged and swallowed; the in-memory
// state stays authoritative and disk catches up on the next successful
// flush.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"rolegate/lib/sl"
)

// Entry pairs a record with its key for listing operations.
type Entry[T any] struct {
	Key   string
	Value T
}

// orderedGuild marshals one guild's records as a JSON object with the keys
// in insertion order. The on-disk shape is the plain nested mapping
// guildId → (key → record); JSON text keeps the key order, which load
// recovers by walking the decoder tokens instead of decoding into a Go map.
type orderedGuild[T any] struct {
	keys    []string
	records map[string]T
}

func (g orderedGuild[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range g.keys {
		value, exists := g.records[key]
		if !exists {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		record, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(record)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FileStore is the JSON whole-file backend.
type FileStore[T any] struct {
	mu     sync.Mutex // guards guilds/order and serializes flushes
	path   string
	log    *slog.Logger
	guilds map[string]map[string]T
	order  map[string][]string // per-guild insertion order of keys
}

// NewFileStore loads the backing file at path, treating absence or a parse
// failure as an empty store.
func NewFileStore[T any](path string, log *slog.Logger) *FileStore[T] {
	s := &FileStore[T]{
		path:   path,
		log:    log.With(sl.Module("store")),
		guilds: make(map[string]map[string]T),
		order:  make(map[string][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("reading store file, starting fresh",
				slog.String("path", path), sl.Err(err))
		} else {
			s.log.Debug("no store file yet, starting fresh", slog.String("path", path))
		}
		return s
	}

	if err = s.decode(data); err != nil {
		s.log.Warn("store file unparseable, starting fresh",
			slog.String("path", path), sl.Err(err))
		s.guilds = make(map[string]map[string]T)
		s.order = make(map[string][]string)
	}
	return s
}

// decode reads the nested mapping, tracking each guild's key order as it
// appears in the file text.
func (s *FileStore[T]) decode(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		guildID, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected guild id, got %v", tok)
		}
		if err = expectDelim(dec, '{'); err != nil {
			return err
		}
		records := make(map[string]T)
		for dec.More() {
			tok, err = dec.Token()
			if err != nil {
				return err
			}
			key, keyOk := tok.(string)
			if !keyOk {
				return fmt.Errorf("expected record key, got %v", tok)
			}
			var value T
			if err = dec.Decode(&value); err != nil {
				return err
			}
			if _, exists := records[key]; !exists {
				s.order[guildID] = append(s.order[guildID], key)
			}
			records[key] = value
		}
		if err = expectDelim(dec, '}'); err != nil {
			return err
		}
		s.guilds[guildID] = records
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// Get returns the record for (guildID, key).
func (s *FileStore[T]) Get(guildID, key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		var zero T
		return zero, false
	}
	value, ok := records[key]
	return value, ok
}

// Put inserts or overwrites the record for (guildID, key) and flushes the
// whole store to disk before returning.
func (s *FileStore[T]) Put(guildID, key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		records = make(map[string]T)
		s.guilds[guildID] = records
	}
	if _, exists := records[key]; !exists {
		s.order[guildID] = append(s.order[guildID], key)
	}
	records[key] = value
	s.flush()
}

// Delete removes the record for (guildID, key) and reports whether one
// existed.
func (s *FileStore[T]) Delete(guildID, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		return false
	}
	if _, exists := records[key]; !exists {
		return false
	}
	delete(records, key)
	keys := s.order[guildID]
	for i, k := range keys {
		if k == key {
			s.order[guildID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	s.flush()
	return true
}

// ListByGuild returns the guild's records in insertion order.
func (s *FileStore[T]) ListByGuild(guildID string) []Entry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.guilds[guildID]
	if !ok {
		return nil
	}
	entries := make([]Entry[T], 0, len(records))
	for _, key := range s.order[guildID] {
		value, exists := records[key]
		if !exists {
			continue
		}
		entries = append(entries, Entry[T]{Key: key, Value: value})
	}
	return entries
}

// flush rewrites the backing file with the full store content.
// Callers hold s.mu. Failures are logged and swallowed: the in-memory
// state has already changed and disk diverges until the next good write.
func (s *FileStore[T]) flush() {
	stored := make(map[string]orderedGuild[T], len(s.guilds))
	for guildID, records := range s.guilds {
		stored[guildID] = orderedGuild[T]{keys: s.order[guildID], records: records}
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		s.log.Error("encoding store", slog.String("path", s.path), sl.Err(err))
		return
	}
	if err = os.WriteFile(s.path, data, 0644); err != nil {
		s.log.Error("writing store file, in-memory state diverges from disk",
			slog.String("path", s.path), sl.Err(err))
	}
}
