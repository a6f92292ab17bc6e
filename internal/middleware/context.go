// AngelaMos | 2026
// context.go

package middleware

import (
	"context"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	IdentityKey  contextKey = "identity_id"
	TenantKey    contextKey = "tenant_id"
)

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetIdentityID returns the external identity authenticated for the request.
func GetIdentityID(ctx context.Context) string {
	if id, ok := ctx.Value(IdentityKey).(string); ok {
		return id
	}
	return ""
}

// GetTenantID returns the tenant resolved by RequireTenant.
func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(TenantKey).(string); ok {
		return id
	}
	return ""
}

// WithIdentity stores an authenticated identity on ctx.
func WithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, IdentityKey, identityID)
}

func IsAuthenticated(ctx context.Context) bool {
	return GetIdentityID(ctx) != ""
}
