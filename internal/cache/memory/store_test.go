package memory

import (
	"context"
	"testing"
	"time"
)

func TestStore_BasicOps(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("Get() on empty store reported a value")
	}

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get() = %q, %v, %v, want v, true, nil", v, ok, err)
	}

	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Error("Exists() = false after Set")
	}
	if ok, _ := s.Delete(ctx, "k"); !ok {
		t.Error("Delete() = false for existing key")
	}
	if ok, _ := s.Delete(ctx, "k"); ok {
		t.Error("Delete() = true for absent key")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "k", []byte("abc"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, _, _ := s.Get(ctx, "k")
	v[0] = 'X'

	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get() returned a value after expiry")
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("Exists() = true after expiry")
	}
}

func TestStore_FieldsAndCounter(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SetField(ctx, "h", "a", []byte("1")); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	v, ok, _ := s.GetField(ctx, "h", "a")
	if !ok || string(v) != "1" {
		t.Fatalf("GetField() = %q, %v", v, ok)
	}
	if _, ok, _ := s.GetField(ctx, "h", "missing"); ok {
		t.Error("GetField() = true for absent field")
	}

	n, err := s.IncrField(ctx, "h", "count", 5)
	if err != nil || n != 5 {
		t.Fatalf("IncrField() = %d, %v, want 5, nil", n, err)
	}
	n, err = s.IncrField(ctx, "h", "count", -2)
	if err != nil || n != 3 {
		t.Fatalf("IncrField() = %d, %v, want 3, nil", n, err)
	}

	if _, err := s.IncrField(ctx, "h", "a", 1); err == nil {
		t.Error("IncrField() on non-integer field did not error")
	}
}

func TestStore_Lists(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, v := range []string{"a", "b", "c"} {
		if err := s.AppendList(ctx, "l", []byte(v)); err != nil {
			t.Fatalf("AppendList() error = %v", err)
		}
	}
	items, err := s.ListRange(ctx, "l")
	if err != nil || len(items) != 3 {
		t.Fatalf("ListRange() = %d items, %v, want 3, nil", len(items), err)
	}
	if string(items[0]) != "a" || string(items[2]) != "c" {
		t.Errorf("ListRange() order wrong: %q ... %q", items[0], items[2])
	}
}

func TestStore_TTLOps(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	ttl, ok, _ := s.GetTTL(ctx, "k")
	if !ok || ttl <= 0 || ttl > time.Hour {
		t.Fatalf("GetTTL() = %v, %v", ttl, ok)
	}

	// Clearing the ttl makes the key permanent.
	if ok, _ := s.SetTTL(ctx, "k", 0); !ok {
		t.Fatal("SetTTL(0) = false for existing key")
	}
	if _, ok, _ := s.GetTTL(ctx, "k"); ok {
		t.Error("GetTTL() = true after clearing expiry")
	}

	if ok, _ := s.SetTTL(ctx, "absent", time.Minute); ok {
		t.Error("SetTTL() = true for absent key")
	}
}
