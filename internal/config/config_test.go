// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file::memory:?_foreign_keys=on")
	t.Setenv("IDENTITY_OFFLINE", "true")
}

func TestLoadDefaults(t *testing.T) {
	offlineEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "tenantId", cfg.Identity.MetadataKey)
	assert.Equal(t, "COP", cfg.Provisioning.Currency)
	assert.Equal(t, 30, cfg.Provisioning.OverdueDays)
	assert.Equal(t, time.Minute, cfg.Provisioning.ReconcileInterval)
	assert.Equal(t, 30*time.Second, cfg.Provisioning.ReconcileBackoff)
	assert.Equal(t, time.Hour, cfg.Provisioning.ReconcileMaxBackoff)
	assert.Equal(t, 20, cfg.Provisioning.ReconcileMaxAttempts)
	assert.Equal(t, "duplicate", cfg.Scoped.Recreate)
	assert.Equal(t, "restamp", cfg.Scoped.Redelete)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadFileThenEnv(t *testing.T) {
	offlineEnv(t)
	t.Setenv("SCOPED_RECREATE", "restore")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 9090\nscoped:\n  recreate: reject\nprovisioning:\n  currency: USD\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Provisioning.Currency)
	assert.Equal(t, "restore", cfg.Scoped.Recreate)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": ""},
			want: "DATABASE_URL",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"DATABASE_DRIVER": "mysql"},
			want: "database.driver",
		},
		{
			name: "online identity needs issuer",
			env:  map[string]string{"IDENTITY_OFFLINE": "false"},
			want: "IDENTITY_ISSUER",
		},
		{
			name: "offline forbidden in production",
			env:  map[string]string{"ENVIRONMENT": "production"},
			want: "offline",
		},
		{
			name: "bad recreate policy",
			env:  map[string]string{"SCOPED_RECREATE": "merge"},
			want: "scoped.recreate",
		},
		{
			name: "bad redelete policy",
			env:  map[string]string{"SCOPED_REDELETE": "ignore"},
			want: "scoped.redelete",
		},
		{
			name: "negative reconcile attempts",
			env:  map[string]string{"RECONCILE_MAX_ATTEMPTS": "-1"},
			want: "reconcile_max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offlineEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	offlineEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
