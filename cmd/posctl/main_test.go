// AngelaMos | 2026
// main_test.go

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/migrations"
)

func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file::memory:?_foreign_keys=on")
	t.Setenv("IDENTITY_OFFLINE", "true")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateUpSQLite(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
}

func TestMigrateStatusNeedsPostgres(t *testing.T) {
	sqliteEnv(t)

	_, err := execute(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestIdentityReconcileEmptyDatabase(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")

	out, err := execute(t, "identity", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "attempted=0 synced=0 failed=0 pending=0 parked=0")
}

func TestIdentityReconcileWithoutSchema(t *testing.T) {
	sqliteEnv(t)

	_, err := execute(t, "identity", "reconcile")
	require.Error(t, err)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &migrations.Status{CurrentVersion: 1, Total: 2, Pending: []int{2}})
	assert.Contains(t, buf.String(), "current version: 1")
	assert.Contains(t, buf.String(), "pending: [2]")

	buf.Reset()
	printStatus(&buf, &migrations.Status{CurrentVersion: 2, Total: 2})
	assert.Contains(t, buf.String(), "pending: none")
}
