// Package cache defines the backend contract and the tenant-scoped
// facades handlers use for conversational state.
package cache

import (
	"context"
	"time"
)

// Backend is the storage contract implemented by the memory, jsonfile,
// and redis backends. Keys are opaque strings constructed by this
// package's namespacing scheme; backends must not reinterpret their
// structure. Values are opaque encoded bytes.
//
// A ttl of zero means no expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)

	GetField(ctx context.Context, key, field string) ([]byte, bool, error)
	SetField(ctx context.Context, key, field string, value []byte) error
	IncrField(ctx context.Context, key, field string, delta int64) (int64, error)

	AppendList(ctx context.Context, key string, value []byte) error
	ListRange(ctx context.Context, key string) ([][]byte, error)

	GetTTL(ctx context.Context, key string) (time.Duration, bool, error)
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Close() error
}

// Kind is the cache tier a facade is bound to.
type Kind string

const (
	// KindState holds per-conversation flow state, scoped by tenant+user.
	KindState Kind = "state"

	// KindUser holds per-user profile data, scoped by tenant+user.
	KindUser Kind = "user"

	// KindTable holds tenant-wide lookup data, scoped by tenant only.
	KindTable Kind = "table"
)

// Key builds the namespaced backend key for a logical name.
func Key(tenantID string, kind Kind, name, scopeID string) string {
	if kind == KindTable {
		return tenantID + ":table:" + name
	}
	return tenantID + ":" + string(kind) + ":" + name + ":" + scopeID
}

// Cache is a tenant-scoped facade over a Backend. All values pass
// through the typed envelope, so a numeric-looking string (a phone
// number, an order id) survives any backend round trip as a string.
type Cache struct {
	backend Backend
	tenant  string
	kind    Kind
	scope   string
}

// NewScoped binds a facade to one tenant/kind/scope triple. scopeID is
// ignored for the table kind.
func NewScoped(b Backend, tenantID string, kind Kind, scopeID string) *Cache {
	return &Cache{backend: b, tenant: tenantID, kind: kind, scope: scopeID}
}

func (c *Cache) key(name string) string {
	return Key(c.tenant, c.kind, name, c.scope)
}

// Get returns the value stored under name, or ok=false when absent.
func (c *Cache) Get(ctx context.Context, name string) (any, bool, error) {
	raw, ok, err := c.backend.Get(ctx, c.key(name))
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores a value with no expiry.
func (c *Cache) Set(ctx context.Context, name string, value any) error {
	return c.SetWithTTL(ctx, name, value, 0)
}

// SetWithTTL stores a value that expires after ttl.
func (c *Cache) SetWithTTL(ctx context.Context, name string, value any, ttl time.Duration) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, c.key(name), raw, ttl)
}

// Delete removes name, reporting whether it existed.
func (c *Cache) Delete(ctx context.Context, name string) (bool, error) {
	return c.backend.Delete(ctx, c.key(name))
}

// Exists reports whether name is present and unexpired.
func (c *Cache) Exists(ctx context.Context, name string) (bool, error) {
	return c.backend.Exists(ctx, c.key(name))
}

// GetField reads one field of a structured value.
func (c *Cache) GetField(ctx context.Context, name, field string) (any, bool, error) {
	raw, ok, err := c.backend.GetField(ctx, c.key(name), field)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// SetField writes one field of a structured value.
func (c *Cache) SetField(ctx context.Context, name, field string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return c.backend.SetField(ctx, c.key(name), field, raw)
}

// IncrField atomically adds delta to a numeric field and returns the new
// value. The counter is stored in the backend's native integer form, not
// the envelope, so redis can HINCRBY it in place.
func (c *Cache) IncrField(ctx context.Context, name, field string, delta int64) (int64, error) {
	return c.backend.IncrField(ctx, c.key(name), field, delta)
}

// AppendList appends a value to the list stored under name.
func (c *Cache) AppendList(ctx context.Context, name string, value any) error {
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return c.backend.AppendList(ctx, c.key(name), raw)
}

// List returns all elements of the list stored under name, oldest first.
func (c *Cache) List(ctx context.Context, name string) ([]any, error) {
	raws, err := c.backend.ListRange(ctx, c.key(name))
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetTTL returns the remaining lifetime of name; ok=false when the key
// is absent or has no expiry.
func (c *Cache) GetTTL(ctx context.Context, name string) (time.Duration, bool, error) {
	return c.backend.GetTTL(ctx, c.key(name))
}

// SetTTL replaces the lifetime of an existing key.
func (c *Cache) SetTTL(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.backend.SetTTL(ctx, c.key(name), ttl)
}
