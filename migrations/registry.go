// Package migrations registers the embedded item schema with a
// go-persistence-bun client for Postgres or SQLite.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	vss "github.com/goliatone/go-vss"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const schemaDir = "data/sql/migrations"

// Schema is the set of migration files for one dialect.
type Schema struct {
	Dialect string
	Dir     string
	FS      fs.FS
	// Versions are the migration names without the .up.sql suffix, sorted.
	Versions []string
}

// Schemas resolves every dialect's migrations from root, or from the
// embedded files when root is nil. Postgres files live at the top of the
// migrations directory and SQLite files in its sqlite/ subdirectory.
func Schemas(root fs.FS) ([]Schema, error) {
	out := make([]Schema, 0, 2)
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		schema, err := SchemaFor(root, dialect)
		if err != nil {
			return nil, err
		}
		out = append(out, schema)
	}
	return out, nil
}

func SchemaFor(root fs.FS, dialect string) (Schema, error) {
	if root == nil {
		root = vss.GetMigrationsFS()
	}
	dialect = normalizeDialect(dialect)
	dir := schemaDir
	switch dialect {
	case DialectPostgres:
	case DialectSQLite:
		dir = path.Join(schemaDir, "sqlite")
	default:
		return Schema{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	sub, err := fs.Sub(root, dir)
	if err != nil {
		return Schema{}, fmt.Errorf("migrations: open %s: %w", dir, err)
	}
	ups, err := fs.Glob(sub, "*.up.sql")
	if err != nil {
		return Schema{}, fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(ups) == 0 {
		return Schema{}, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}

	versions := make([]string, 0, len(ups))
	for _, name := range ups {
		version := strings.TrimSuffix(name, ".up.sql")
		if _, err := fs.Stat(sub, version+".down.sql"); err != nil {
			return Schema{}, fmt.Errorf("migrations: %s/%s has no down migration", dir, version)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return Schema{Dialect: dialect, Dir: dir, FS: sub, Versions: versions}, nil
}

// Apply registers the item schema for dialect on client and migrates it.
func Apply(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	schema, err := SchemaFor(nil, dialect)
	if err != nil {
		return err
	}
	client.RegisterSQLMigrations(schema.FS)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: migrate %s: %w", schema.Dialect, err)
	}
	return nil
}

func normalizeDialect(dialect string) string {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	switch dialect {
	case "postgresql", "pg":
		return DialectPostgres
	case "sqlite3":
		return DialectSQLite
	}
	return dialect
}
