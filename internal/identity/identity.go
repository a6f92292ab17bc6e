// AngelaMos | 2026
// identity.go

// Package identity bridges the external identity provider and the tenant
// store: it verifies callers, resolves their tenant from the provider's
// private metadata, and keeps that metadata in sync after provisioning.
package identity

import (
	"context"
	"errors"
)

// ErrProvider wraps failures talking to the identity provider.
var ErrProvider = errors.New("identity provider unavailable")

// Identity is an authenticated caller as asserted by the identity provider.
type Identity struct {
	ID string
}

// Verifier authenticates a bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// MetadataStore is the provider-side key/value store attached to an identity.
// SetPrivateMetadata merges the given keys into the existing metadata.
type MetadataStore interface {
	PrivateMetadata(ctx context.Context, identityID string) (map[string]any, error)
	SetPrivateMetadata(ctx context.Context, identityID string, values map[string]any) error
}

// UserDirectory answers which tenant a local user row binds an identity to.
// It returns "" when the identity has no user.
type UserDirectory interface {
	TenantIDForIdentity(ctx context.Context, identityID string) (string, error)
}
