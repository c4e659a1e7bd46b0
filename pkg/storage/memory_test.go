package storage

import (
	"context"
	"sort"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	if _, ok, err := store.Get(ctx, "theme"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "theme", `"dark"`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := store.Get(ctx, "theme")
	if err != nil || !ok {
		t.Fatalf("expected present key, got ok=%v err=%v", ok, err)
	}
	if v != `"dark"` {
		t.Errorf("expected %q, got %q", `"dark"`, v)
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	store.Set(ctx, "k", "v")
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("key still present after remove")
	}

	// Removing a missing key is not an error.
	if err := store.Remove(ctx, "missing"); err != nil {
		t.Errorf("Remove missing key: %v", err)
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	store.Set(ctx, "a", "1")
	store.Set(ctx, "b", "2")

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected [a b], got %v", keys)
	}
}

func TestMemoryStoreCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	if n := store.Count(); n != 0 {
		t.Fatalf("expected empty store, got %d keys", n)
	}

	store.Set(ctx, "a", "1")
	store.Set(ctx, "b", "2")
	store.Set(ctx, "a", "3") // overwrite, not a new key
	if n := store.Count(); n != 2 {
		t.Errorf("expected 2 keys, got %d", n)
	}

	store.Remove(ctx, "a")
	if n := store.Count(); n != 1 {
		t.Errorf("expected 1 key after remove, got %d", n)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Close()

	if err := store.Set(ctx, "k", "v"); err == nil {
		t.Error("expected error setting on closed store")
	}
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Error("expected error getting from closed store")
	}
	if err := store.Close(); err != nil {
		t.Errorf("double close: %v", err)
	}
}

func TestChangeMatches(t *testing.T) {
	if !(Change{Key: "theme"}).Matches("theme") {
		t.Error("same key should match")
	}
	if (Change{Key: "theme"}).Matches("count") {
		t.Error("different key should not match")
	}
	if !(Change{}).Matches("anything") {
		t.Error("keyless change should match every key")
	}
}
