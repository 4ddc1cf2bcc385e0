package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/sadopc/coursematrix/internal/storage"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewMemory(opts...)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Should have run migration v1
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/coursematrix.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetItem("k", `"v"`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migration is not re-run
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	v, ok, err := s2.GetItem("k")
	if err != nil || !ok || v != `"v"` {
		t.Fatalf("after reopen got %q, %v, %v", v, ok, err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "coursematrix.db") {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	// Running migrate again should be a no-op
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Items
// ============================================================

func TestSetAndGetItem(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetItem("courseMatrix_activeSemester", `"end"`); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.GetItem("courseMatrix_activeSemester")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != `"end"` {
		t.Fatalf("expected \"end\", got %q (found=%v)", v, ok)
	}
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestStore(t)
	v, ok, err := s.GetItem("missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok || v != "" {
		t.Fatalf("expected not found, got %q", v)
	}
}

func TestSetItemOverwrite(t *testing.T) {
	s := newTestStore(t)
	s.SetItem("k", "1")
	s.SetItem("k", "2")

	v, _, _ := s.GetItem("k")
	if v != "2" {
		t.Fatalf("expected 2, got %q", v)
	}
	keys, _ := s.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
}

func TestRemoveItem(t *testing.T) {
	s := newTestStore(t)
	s.SetItem("k", "1")

	if err := s.RemoveItem("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetItem("k"); ok {
		t.Fatal("expected item to be removed")
	}
	// Removing a missing key is not an error
	if err := s.RemoveItem("k"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestKeysSorted(t *testing.T) {
	s := newTestStore(t)
	for _, k := range []string{"b", "c", "a"} {
		s.SetItem(k, "1")
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(keys, ",") != "a,b,c" {
		t.Fatalf("expected a,b,c, got %v", keys)
	}
}

func TestKeysEmpty(t *testing.T) {
	s := newTestStore(t)
	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestListItems(t *testing.T) {
	s := newTestStore(t)
	s.SetItem("b", "2")
	s.SetItem("a", "1")

	items, err := s.ListItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Key != "a" || items[0].Value != "1" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}
}

// ============================================================
// Quota
// ============================================================

func TestUsageCountsBytes(t *testing.T) {
	s := newTestStore(t)
	s.SetItem("ab", "ü") // 2 bytes of UTF-8

	used, err := s.Usage()
	if err != nil {
		t.Fatal(err)
	}
	if used != 4 {
		t.Fatalf("expected 4 bytes, got %d", used)
	}
}

func TestQuotaExceeded(t *testing.T) {
	s := newTestStore(t, WithQuota(10))

	if err := s.SetItem("a", "12345"); err != nil {
		t.Fatalf("first write within quota: %v", err)
	}
	err := s.SetItem("b", "123456")
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if _, ok, _ := s.GetItem("b"); ok {
		t.Fatal("rejected write must not be stored")
	}
}

func TestQuotaReplacementCountsOnlyNewValue(t *testing.T) {
	s := newTestStore(t, WithQuota(10))

	if err := s.SetItem("a", "123456789"); err != nil {
		t.Fatal(err)
	}
	// Overwriting frees the old value first
	if err := s.SetItem("a", "987654321"); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if s.Quota() != 10 {
		t.Fatalf("expected quota 10, got %d", s.Quota())
	}
}

func TestStoreAsAdapterBackend(t *testing.T) {
	s := newTestStore(t, WithQuota(200))
	m := storage.NewManager(s, nil, storage.WithRetries(0))
	if !m.Available() {
		t.Fatal("expected sqlite store to be available")
	}

	if res := m.Write("cache_x", strings.Repeat("x", 30)); !res.OK {
		t.Fatalf("write: %s", res.Error)
	}
	// Larger than the whole quota
	if res := m.Write("big", strings.Repeat("y", 250)); res.OK {
		t.Fatal("expected quota failure")
	}
	if m.Available() {
		t.Fatal("quota failure should mark storage unavailable")
	}
}

// ============================================================
// Close
// ============================================================

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	err := s.Close()
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
}

func TestClassifyPassesThroughPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	if got := classify(plain); got != plain {
		t.Fatalf("expected plain error unchanged, got %v", got)
	}
	if classify(nil) != nil {
		t.Fatal("expected nil")
	}
}
