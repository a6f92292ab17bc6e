// AngelaMos | 2026
// db.go

// Package testutil provides an in-memory sqlite store with the full schema.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/migrations"
)

// NewDatabase opens a fresh in-memory sqlite database, applies the schema
// and closes it when the test ends.
func NewDatabase(t *testing.T) *core.Database {
	t.Helper()

	ctx := context.Background()

	db, err := core.NewDatabase(ctx, config.DatabaseConfig{
		Driver: core.DriverSQLite,
		URL:    "file::memory:?_foreign_keys=on",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close() //nolint:errcheck // test cleanup
	})

	require.NoError(t, migrations.ApplySQLite(ctx, db.DB))

	return db
}

// InsertTenant inserts a bare tenant row and returns its id. Use it when a
// test needs a foreign key target without running provisioning.
func InsertTenant(t *testing.T, db *core.Database, id, subdomain string) string {
	t.Helper()

	query, args, err := db.Dialect.Builder().Insert("tenants").
		Columns("id", "name", "subdomain", "email", "created_at", "updated_at").
		Values(id, subdomain, subdomain, subdomain+"@example.com", Now(), Now()).
		ToSql()
	require.NoError(t, err)

	_, err = db.DB.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)

	return id
}
