// Package jsonfile is a cache backend persisted to a single JSON file.
// It trades write throughput for zero operational dependencies, which
// suits single-instance deployments with modest traffic.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	Value     json.RawMessage            `json:"value,omitempty"`
	Fields    map[string]json.RawMessage `json:"fields,omitempty"`
	List      []json.RawMessage          `json:"list,omitempty"`
	ExpiresAt *time.Time                 `json:"expires_at,omitempty"`
}

func (e *entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Store is the JSON-file cache backend. The whole map is held in memory
// and flushed to disk after every mutation via write-to-temp + rename.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]*entry
}

// Open loads the store from path, creating an empty file on first use.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]*entry)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("jsonfile: open %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("jsonfile: corrupt store %s: %w", path, err)
		}
	}
	return s, nil
}

// flush persists the current map. Callers must hold mu.
func (s *Store) flush() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("jsonfile: encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".wappa-cache-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) live(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *Store) ensure(key string) *entry {
	if e := s.live(key); e != nil {
		return e
	}
	e := &entry{}
	s.entries[key] = e
	return e
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.Value == nil {
		return nil, false, nil
	}
	return append([]byte(nil), e.Value...), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	e.Value = append(json.RawMessage(nil), value...)
	e.ExpiresAt = nil
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		e.ExpiresAt = &exp
	}
	return s.flush()
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) == nil {
		return false, nil
	}
	delete(s.entries, key)
	return true, s.flush()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.live(key) != nil, nil
}

func (s *Store) GetField(ctx context.Context, key, field string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil, false, nil
	}
	v, ok := e.Fields[field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) SetField(ctx context.Context, key, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.Fields == nil {
		e.Fields = make(map[string]json.RawMessage)
	}
	e.Fields[field] = append(json.RawMessage(nil), value...)
	return s.flush()
}

func (s *Store) IncrField(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.Fields == nil {
		e.Fields = make(map[string]json.RawMessage)
	}

	var current int64
	if raw, ok := e.Fields[field]; ok {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("jsonfile: field %s of %s is not an integer", field, key)
		}
		current = n
	}

	current += delta
	e.Fields[field] = json.RawMessage(strconv.FormatInt(current, 10))
	return current, s.flush()
}

func (s *Store) AppendList(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	e.List = append(e.List, append(json.RawMessage(nil), value...))
	return s.flush()
}

func (s *Store) ListRange(ctx context.Context, key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	out := make([][]byte, len(e.List))
	for i, v := range e.List {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *Store) GetTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.ExpiresAt == nil {
		return 0, false, nil
	}
	return time.Until(*e.ExpiresAt), true, nil
}

func (s *Store) SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return false, nil
	}
	e.ExpiresAt = nil
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		e.ExpiresAt = &exp
	}
	return true, s.flush()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}
