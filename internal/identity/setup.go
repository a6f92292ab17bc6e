// AngelaMos | 2026
// setup.go

package identity

import (
	"context"
	"time"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

// NewVerifier returns the header verifier in offline mode and a JWKS-backed
// JWT verifier otherwise.
func NewVerifier(ctx context.Context, cfg config.IdentityConfig) (Verifier, error) {
	if cfg.Offline {
		return HeaderVerifier{}, nil
	}
	v, err := NewJWTVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// NewMetadataStore returns an in-process store in offline mode.
func NewMetadataStore(cfg config.IdentityConfig) MetadataStore {
	if cfg.Offline {
		return NewMemoryMetadataStore()
	}
	return NewHTTPMetadataStore(cfg.APIURL, cfg.SecretKey, cfg.RequestTimeout)
}

// NewTenantCache shares resolutions through redis when it is configured.
func NewTenantCache(rdb *core.Redis, ttl time.Duration) TenantCache {
	if rdb == nil || rdb.Client == nil {
		return NewMemoryTenantCache(ttl)
	}
	return NewRedisTenantCache(rdb.Client, ttl)
}

func RetryFromConfig(cfg config.ProvisioningConfig) RetryPolicy {
	return RetryPolicy{
		BaseDelay:   cfg.ReconcileBackoff,
		MaxDelay:    cfg.ReconcileMaxBackoff,
		MaxAttempts: cfg.ReconcileMaxAttempts,
	}
}
