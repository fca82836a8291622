package server

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	vssmigrations "github.com/goliatone/go-vss/migrations"
	"github.com/goliatone/go-vss/store"
	boltstore "github.com/goliatone/go-vss/store/bolt"
	cachedstore "github.com/goliatone/go-vss/store/cached"
	memorystore "github.com/goliatone/go-vss/store/memory"
	sqlstore "github.com/goliatone/go-vss/store/sql"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	dsn    string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.dsn }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-vss" }

// OpenStore builds the item store named by cfg. SQL backends are migrated
// before use, and their database driver must be registered by the caller.
// The returned store owns every resource it opened.
func OpenStore(ctx context.Context, cfg StoreConfig) (store.ItemStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := openBaseStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTLSeconds <= 0 {
		return base, nil
	}
	cached, err := cachedstore.NewWithTTL(base, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return cached, nil
}

func openBaseStore(ctx context.Context, cfg StoreConfig) (store.ItemStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return memorystore.New(), nil
	case BackendBolt:
		boltStore, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return boltStore, nil
	case BackendSQLite:
		return openSQLStore(ctx, cfg, "sqlite3", vssmigrations.DialectSQLite, sqlitedialect.New())
	case BackendPostgres:
		return openSQLStore(ctx, cfg, "postgres", vssmigrations.DialectPostgres, pgdialect.New())
	default:
		return nil, fmt.Errorf("server: unknown store backend %q", cfg.Backend)
	}
}

// sqlItemStore closes the persistence client along with the store.
type sqlItemStore struct {
	*sqlstore.ItemStore
	client *persistence.Client
}

func (s sqlItemStore) Close() error {
	return s.client.Close()
}

func openSQLStore(ctx context.Context, cfg StoreConfig, driver string, dialect string, bunDialect schema.Dialect) (store.ItemStore, error) {
	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("server: open %s database: %w", driver, err)
	}
	if dialect == vssmigrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: driver, dsn: cfg.DSN, debug: cfg.Debug}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("server: persistence client: %w", err)
	}
	if err := vssmigrations.Apply(ctx, client, dialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	itemStore, err := sqlstore.NewItemStoreFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return sqlItemStore{ItemStore: itemStore, client: client}, nil
}
