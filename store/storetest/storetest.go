// Package storetest holds the behaviour every store.ItemStore must share.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
)

type Factory func(t *testing.T) store.ItemStore

// Run exercises newStore against the shared item store contract. Each
// subtest receives a fresh store.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := map[string]func(t *testing.T, s store.ItemStore){
		"put and get":               testPutAndGet,
		"missing item":              testMissingItem,
		"list sorted with prefix":   testListSortedWithPrefix,
		"stores are isolated":       testStoresIsolated,
		"keep newest ignores stale": testKeepNewest,
		"last write wins":           testLastWriteWins,
		"reject stale is atomic":    testRejectStaleAtomic,
		"later batch entries win":   testLaterBatchEntriesWin,
		"empty batch":               testEmptyBatch,
		"store id is required":      testStoreIDRequired,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func item(key string, version uint32, value ...byte) core.EncryptedItem {
	if len(value) == 0 {
		value = []byte{byte(version), 0xAB}
	}
	return core.EncryptedItem{Key: key, Value: core.Ciphertext(value), Version: version}
}

func mustPut(t *testing.T, s store.ItemStore, storeID string, policy store.VersionPolicy, items ...core.EncryptedItem) {
	t.Helper()
	if err := s.PutItems(context.Background(), storeID, items, policy); err != nil {
		t.Fatalf("put items: %v", err)
	}
}

func mustGet(t *testing.T, s store.ItemStore, storeID string, key string) core.EncryptedItem {
	t.Helper()
	got, err := s.GetItem(context.Background(), storeID, key)
	if err != nil {
		t.Fatalf("get item %q: %v", key, err)
	}
	return got
}

func testPutAndGet(t *testing.T, s store.ItemStore) {
	want := item("hello", 3, 0x00, 0x01, 0xFF)
	mustPut(t, s, "store-a", store.KeepNewest, want)
	got := mustGet(t, s, "store-a", "hello")
	if got.Key != want.Key || got.Version != want.Version || !bytes.Equal(got.Value, want.Value) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func testMissingItem(t *testing.T, s store.ItemStore) {
	if _, err := s.GetItem(context.Background(), "nobody", "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown store, got %v", err)
	}
	mustPut(t, s, "store-a", store.KeepNewest, item("present", 0))
	if _, err := s.GetItem(context.Background(), "store-a", "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown key, got %v", err)
	}
}

func testListSortedWithPrefix(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.KeepNewest,
		item("settings/theme", 2),
		item("other", 7),
		item("settings/lang", 1),
	)
	all, err := s.ListKeyVersions(context.Background(), "store-a", nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	want := []core.KeyVersion{{Key: "other", Version: 7}, {Key: "settings/lang", Version: 1}, {Key: "settings/theme", Version: 2}}
	if len(all) != len(want) {
		t.Fatalf("expected %d versions, got %#v", len(want), all)
	}
	for idx := range want {
		if all[idx] != want[idx] {
			t.Fatalf("expected %#v at %d, got %#v", want[idx], idx, all[idx])
		}
	}

	prefix := "settings/"
	filtered, err := s.ListKeyVersions(context.Background(), "store-a", &prefix)
	if err != nil {
		t.Fatalf("list prefix: %v", err)
	}
	if len(filtered) != 2 || filtered[0].Key != "settings/lang" || filtered[1].Key != "settings/theme" {
		t.Fatalf("unexpected prefix listing: %#v", filtered)
	}

	empty, err := s.ListKeyVersions(context.Background(), "nobody", nil)
	if err != nil {
		t.Fatalf("list unknown store: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil listing, got %#v", empty)
	}
}

func testStoresIsolated(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.KeepNewest, item("shared", 1, 0x0A))
	mustPut(t, s, "store-b", store.KeepNewest, item("shared", 9, 0x0B))
	if got := mustGet(t, s, "store-a", "shared"); got.Version != 1 || got.Value[0] != 0x0A {
		t.Fatalf("store-a saw store-b data: %#v", got)
	}
	versions, err := s.ListKeyVersions(context.Background(), "store-b", nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != 9 {
		t.Fatalf("unexpected store-b listing: %#v", versions)
	}
}

func testKeepNewest(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.KeepNewest, item("hello", 0, 0x00))
	mustPut(t, s, "store-a", store.KeepNewest, item("hello", 1, 0x01))
	mustPut(t, s, "store-a", store.KeepNewest, item("hello", 0, 0x02))
	got := mustGet(t, s, "store-a", "hello")
	if got.Version != 1 || got.Value[0] != 0x01 {
		t.Fatalf("expected version 1 to survive, got %#v", got)
	}
}

func testLastWriteWins(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.LastWriteWins, item("hello", 5, 0x05))
	mustPut(t, s, "store-a", store.LastWriteWins, item("hello", 2, 0x02))
	got := mustGet(t, s, "store-a", "hello")
	if got.Version != 2 || got.Value[0] != 0x02 {
		t.Fatalf("expected latest write to win, got %#v", got)
	}
}

func testRejectStaleAtomic(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.RejectStale, item("b", 4, 0x04))
	err := s.PutItems(context.Background(), "store-a", []core.EncryptedItem{
		item("a", 1, 0x01),
		item("b", 3, 0x03),
	}, store.RejectStale)
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if _, err := s.GetItem(context.Background(), "store-a", "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rejected batch to leave no partial writes, got %v", err)
	}
	if got := mustGet(t, s, "store-a", "b"); got.Version != 4 {
		t.Fatalf("expected stored version to be untouched, got %#v", got)
	}
}

func testLaterBatchEntriesWin(t *testing.T, s store.ItemStore) {
	mustPut(t, s, "store-a", store.LastWriteWins, item("dup", 1, 0x01), item("dup", 1, 0x02))
	if got := mustGet(t, s, "store-a", "dup"); got.Value[0] != 0x02 {
		t.Fatalf("expected later batch entry to win, got %#v", got)
	}
}

func testEmptyBatch(t *testing.T, s store.ItemStore) {
	if err := s.PutItems(context.Background(), "store-a", nil, store.KeepNewest); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func testStoreIDRequired(t *testing.T, s store.ItemStore) {
	if err := s.PutItems(context.Background(), " ", []core.EncryptedItem{item("k", 0)}, store.KeepNewest); err == nil {
		t.Fatalf("expected empty store id to fail")
	}
}
