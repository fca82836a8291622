package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	vss "github.com/goliatone/go-vss"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestSchemas_ResolvesBothDialects(t *testing.T) {
	schemas, err := Schemas(nil)
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	if schemas[0].Dialect != DialectPostgres || schemas[1].Dialect != DialectSQLite {
		t.Fatalf("unexpected dialect order: %s, %s", schemas[0].Dialect, schemas[1].Dialect)
	}
	for _, schema := range schemas {
		if len(schema.Versions) == 0 || schema.Versions[0] != "00001_vss_items" {
			t.Fatalf("expected %s to start with 00001_vss_items, got %v", schema.Dialect, schema.Versions)
		}
		if _, err := fs.ReadFile(schema.FS, schema.Versions[0]+".up.sql"); err != nil {
			t.Fatalf("read %s up migration: %v", schema.Dialect, err)
		}
	}
	if schemas[1].Dir != "data/sql/migrations/sqlite" {
		t.Fatalf("unexpected sqlite dir %q", schemas[1].Dir)
	}
}

func TestSchemaFor_NormalizesDriverNames(t *testing.T) {
	for input, want := range map[string]string{
		"sqlite3":    DialectSQLite,
		" SQLite ":   DialectSQLite,
		"postgresql": DialectPostgres,
		"pg":         DialectPostgres,
	} {
		schema, err := SchemaFor(nil, input)
		if err != nil {
			t.Fatalf("schema for %q: %v", input, err)
		}
		if schema.Dialect != want {
			t.Fatalf("expected %q to resolve to %s, got %s", input, want, schema.Dialect)
		}
	}
	if _, err := SchemaFor(nil, "mysql"); err == nil {
		t.Fatalf("expected unsupported dialect to fail")
	}
}

func TestSchemaFor_RequiresDownMigration(t *testing.T) {
	root := fstest.MapFS{
		"data/sql/migrations/sqlite/00001_only_up.up.sql": {Data: []byte("CREATE TABLE t (id TEXT);")},
	}
	if _, err := SchemaFor(root, DialectSQLite); err == nil {
		t.Fatalf("expected missing down migration to fail")
	}
}

func TestSchemaFor_RequiresMigrations(t *testing.T) {
	root := fstest.MapFS{
		"data/sql/migrations/README": {Data: []byte("empty")},
	}
	if _, err := SchemaFor(root, DialectPostgres); err == nil {
		t.Fatalf("expected empty migrations dir to fail")
	}
}

func TestItemsMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := vss.GetMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_vss_items.up.sql",
		"data/sql/migrations/00001_vss_items.down.sql",
		"data/sql/migrations/sqlite/00001_vss_items.up.sql",
		"data/sql/migrations/sqlite/00001_vss_items.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteItemsMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-vss-items?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(vss.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_vss_items.up.sql"); err != nil {
		t.Fatalf("apply items migration up: %v", err)
	}

	insertStatement := `INSERT INTO vss_items (id, store_id, item_key, value, version) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, insertStatement, "row-1", "store-a", "hello", []byte{0x01}, 1); err != nil {
		t.Fatalf("insert first row: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertStatement, "row-2", "store-b", "hello", []byte{0x02}, 1); err != nil {
		t.Fatalf("expected same key in another store to succeed: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertStatement, "row-3", "store-a", "hello", []byte{0x03}, 2); err == nil {
		t.Fatalf("expected unique (store_id, item_key) violation")
	}
	if _, err := db.ExecContext(ctx, insertStatement, "row-4", "store-a", "negative", []byte{}, -1); err == nil {
		t.Fatalf("expected negative version to violate check constraint")
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_vss_items.down.sql"); err != nil {
		t.Fatalf("apply items migration down: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"vss_items",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migration: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected vss_items to be dropped after down migration")
	}
}

type testPersistenceConfig struct {
	server string
}

func (c testPersistenceConfig) GetDebug() bool                { return false }
func (c testPersistenceConfig) GetDriver() string             { return "sqlite3" }
func (c testPersistenceConfig) GetServer() string             { return c.server }
func (c testPersistenceConfig) GetPingTimeout() time.Duration { return time.Second }
func (c testPersistenceConfig) GetOtelIdentifier() string     { return "go-vss-tests" }

func TestApply_MigratesSQLiteClient(t *testing.T) {
	dsn := fmt.Sprintf("file:migrations-apply-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	client, err := persistence.New(testPersistenceConfig{server: dsn}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	if err := Apply(ctx, client, DialectSQLite); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"vss_items",
	).Scan(ctx, &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "vss_items" {
		t.Fatalf("expected vss_items table, got %q", tableName)
	}
}

func TestApply_RequiresClient(t *testing.T) {
	if err := Apply(context.Background(), nil, DialectSQLite); err == nil {
		t.Fatalf("expected nil client to fail")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
