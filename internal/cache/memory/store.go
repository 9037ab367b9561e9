// Package memory is the in-process cache backend.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	fields    map[string][]byte
	list      [][]byte
	expiresAt time.Time // zero = no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an in-memory cache backend. Expired entries are reaped lazily
// on access, which is sufficient for the small working sets this backend
// is meant for (development and tests). Reaping mutates the map, so even
// read paths hold the exclusive lock.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// live returns the entry for key if present and unexpired, reaping it
// otherwise. Callers must hold mu.
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
	if e == nil || e.value == nil {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	e.value = append([]byte(nil), value...)
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) == nil {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
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
	v, ok := e.fields[field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) SetField(ctx context.Context, key, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.fields == nil {
		e.fields = make(map[string][]byte)
	}
	e.fields[field] = append([]byte(nil), value...)
	return nil
}

func (s *Store) IncrField(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.fields == nil {
		e.fields = make(map[string][]byte)
	}

	var current int64
	if raw, ok := e.fields[field]; ok {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("memory: field %s of %s is not an integer", field, key)
		}
		current = n
	}

	current += delta
	e.fields[field] = []byte(strconv.FormatInt(current, 10))
	return current, nil
}

func (s *Store) AppendList(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	e.list = append(e.list, append([]byte(nil), value...))
	return nil
}

func (s *Store) ListRange(ctx context.Context, key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	out := make([][]byte, len(e.list))
	for i, v := range e.list {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *Store) GetTTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil || e.expiresAt.IsZero() {
		return 0, false, nil
	}
	return time.Until(e.expiresAt), true, nil
}

func (s *Store) SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return false, nil
	}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return true, nil
}

func (s *Store) Close() error { return nil }
