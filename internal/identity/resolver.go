// AngelaMos | 2026
// resolver.go

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

// Resolver maps an authenticated identity to its tenant.
//
// Lookup order is cache, provider metadata, then the local users table. A
// user row proves provisioning committed, so finding one while metadata is
// missing triggers a repair of the metadata. An identity with neither
// resolves to "" with a nil error: onboarding has not finished.
type Resolver struct {
	store  MetadataStore
	cache  TenantCache
	users  UserDirectory
	linker *Linker
	key    string
	logger *slog.Logger
}

type ResolverConfig struct {
	Store       MetadataStore
	Cache       TenantCache
	Users       UserDirectory
	Linker      *Linker
	MetadataKey string
	Logger      *slog.Logger
}

func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:  cfg.Store,
		cache:  cfg.Cache,
		users:  cfg.Users,
		linker: cfg.Linker,
		key:    cfg.MetadataKey,
		logger: logger,
	}
}

func (r *Resolver) ResolveTenant(ctx context.Context, identityID string) (string, error) {
	if identityID == "" {
		return "", fmt.Errorf("resolve tenant: %w", core.ErrUnauthorized)
	}

	if r.cache != nil {
		tenantID, err := r.cache.Get(ctx, identityID)
		if err != nil {
			r.logger.WarnContext(ctx, "tenant cache get failed", "error", err)
		} else if tenantID != "" {
			return tenantID, nil
		}
	}

	if tenantID := r.fromMetadata(ctx, identityID); tenantID != "" {
		r.remember(ctx, identityID, tenantID)
		return tenantID, nil
	}

	if r.users == nil {
		return "", nil
	}

	tenantID, err := r.users.TenantIDForIdentity(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("resolve tenant: %w: %w", core.ErrStorage, err)
	}
	if tenantID == "" {
		return "", nil
	}

	r.logger.InfoContext(ctx, "repairing identity metadata",
		"identity_id", identityID,
		"tenant_id", tenantID,
	)

	if r.linker != nil {
		if err := r.linker.SyncIdentity(ctx, identityID, tenantID); err != nil {
			r.logger.WarnContext(ctx, "identity metadata repair failed",
				"identity_id", identityID,
				"error", err,
			)
		}
	}

	r.remember(ctx, identityID, tenantID)
	return tenantID, nil
}

// Forget drops any cached resolution for identityID.
func (r *Resolver) Forget(ctx context.Context, identityID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, identityID); err != nil {
		r.logger.WarnContext(ctx, "tenant cache delete failed", "error", err)
	}
}

func (r *Resolver) fromMetadata(ctx context.Context, identityID string) string {
	md, err := r.store.PrivateMetadata(ctx, identityID)
	if err != nil {
		r.logger.WarnContext(ctx, "identity metadata unavailable",
			"identity_id", identityID,
			"error", err,
		)
		return ""
	}

	tenantID, _ := md[r.key].(string)
	return tenantID
}

func (r *Resolver) remember(ctx context.Context, identityID, tenantID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, identityID, tenantID); err != nil {
		r.logger.WarnContext(ctx, "tenant cache set failed", "error", err)
	}
}
