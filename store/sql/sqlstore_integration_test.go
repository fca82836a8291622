package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-vss/core"
	vssmigrations "github.com/goliatone/go-vss/migrations"
	"github.com/goliatone/go-vss/store"
	sqlstore "github.com/goliatone/go-vss/store/sql"
	"github.com/goliatone/go-vss/store/storetest"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-vss-tests"
}

var clientSeq atomic.Int64

func TestItemStoreConformanceSQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.ItemStore {
		client, cleanup := newSQLiteClient(t)
		t.Cleanup(cleanup)
		itemStore, err := sqlstore.NewItemStoreFromPersistence(client)
		if err != nil {
			t.Fatalf("new item store: %v", err)
		}
		return itemStore
	})
}

func TestItemStore_PrefixIsLiteral(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	itemStore, err := sqlstore.NewItemStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new item store: %v", err)
	}

	items := []core.EncryptedItem{
		{Key: "a_b", Value: core.Ciphertext{1}},
		{Key: "axb", Value: core.Ciphertext{2}},
		{Key: "A_B", Value: core.Ciphertext{3}},
		{Key: "100%", Value: core.Ciphertext{4}},
		{Key: "1000", Value: core.Ciphertext{5}},
	}
	if err := itemStore.PutItems(ctx, "store-a", items, store.KeepNewest); err != nil {
		t.Fatalf("put: %v", err)
	}

	cases := map[string][]string{
		"a_":   {"a_b"},
		"10":   {"100%", "1000"},
		"100%": {"100%"},
	}
	for prefix, want := range cases {
		prefix := prefix
		got, err := itemStore.ListKeyVersions(ctx, "store-a", &prefix)
		if err != nil {
			t.Fatalf("list %q: %v", prefix, err)
		}
		if len(got) != len(want) {
			t.Fatalf("prefix %q: expected %v, got %#v", prefix, want, got)
		}
		for idx := range want {
			if got[idx].Key != want[idx] {
				t.Fatalf("prefix %q: expected %v, got %#v", prefix, want, got)
			}
		}
	}
}

func TestItemStore_UpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	itemStore, err := sqlstore.NewItemStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new item store: %v", err)
	}

	for version := uint32(0); version < 3; version++ {
		item := core.EncryptedItem{Key: "hello", Value: core.Ciphertext{byte(version)}, Version: version}
		if err := itemStore.PutItems(ctx, "store-a", []core.EncryptedItem{item}, store.KeepNewest); err != nil {
			t.Fatalf("put v%d: %v", version, err)
		}
	}

	var rows int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM vss_items WHERE store_id = ? AND item_key = ?",
		"store-a",
		"hello",
	).Scan(ctx, &rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single row per key, got %d", rows)
	}
	got, err := itemStore.GetItem(ctx, "store-a", "hello")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 || got.Value[0] != 2 {
		t.Fatalf("unexpected item: %#v", got)
	}
}

func TestNewItemStore_RequiresDB(t *testing.T) {
	if _, err := sqlstore.NewItemStore(nil); err == nil {
		t.Fatalf("expected nil db to fail")
	}
	if _, err := sqlstore.NewItemStoreFromPersistence(nil); err == nil {
		t.Fatalf("expected nil persistence client to fail")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:vss-test-%d-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
		clientSeq.Add(1),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	if err := vssmigrations.Apply(context.Background(), client, vssmigrations.DialectSQLite); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
