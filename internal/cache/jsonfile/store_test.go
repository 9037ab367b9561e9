package jsonfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(ctx, "k", []byte(`{"t":"s","v":"hello"}`), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.SetField(ctx, "h", "step", []byte(`"checkout"`)); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := s.AppendList(ctx, "l", []byte(`"first"`)); err != nil {
		t.Fatalf("AppendList() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after close error = %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || string(v) != `{"t":"s","v":"hello"}` {
		t.Fatalf("Get() after reopen = %q, %v, %v", v, ok, err)
	}
	f, ok, _ := reopened.GetField(ctx, "h", "step")
	if !ok || string(f) != `"checkout"` {
		t.Fatalf("GetField() after reopen = %q, %v", f, ok)
	}
	items, _ := reopened.ListRange(ctx, "l")
	if len(items) != 1 || string(items[0]) != `"first"` {
		t.Fatalf("ListRange() after reopen = %v", items)
	}
}

func TestStore_ExpiryPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	time.Sleep(25 * time.Millisecond)

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after close error = %v", err)
	}
	defer reopened.Close()

	if _, ok, _ := reopened.Get(ctx, "short"); ok {
		t.Error("expired entry survived a reopen")
	}
}

func TestStore_IncrField(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	n, err := s.IncrField(ctx, "h", "count", 2)
	if err != nil || n != 2 {
		t.Fatalf("IncrField() = %d, %v, want 2, nil", n, err)
	}
	n, err = s.IncrField(ctx, "h", "count", 3)
	if err != nil || n != 5 {
		t.Fatalf("IncrField() = %d, %v, want 5, nil", n, err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on missing file error = %v", err)
	}
	defer s.Close()

	if ok, _ := s.Exists(context.Background(), "anything"); ok {
		t.Error("fresh store reported an existing key")
	}
}
