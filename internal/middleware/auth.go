// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
)

// TokenExtractor lets a verifier read its credential from somewhere other
// than the Authorization header.
type TokenExtractor interface {
	TokenFromRequest(r *http.Request) string
}

type TenantResolver interface {
	ResolveTenant(ctx context.Context, identityID string) (string, error)
}

func Authenticator(verifier identity.Verifier) func(http.Handler) http.Handler {
	extract := ExtractToken
	if te, ok := verifier.(TokenExtractor); ok {
		extract = te.TokenFromRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extract(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id.ID)))
		})
	}
}

// RequireTenant resolves the caller's tenant and rejects callers that have
// not finished onboarding. It must run after Authenticator.
func RequireTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identityID := GetIdentityID(r.Context())
			if identityID == "" {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}

			tenantID, err := resolver.ResolveTenant(r.Context(), identityID)
			if err != nil {
				core.Fail(w, r, err, "tenant")
				return
			}
			if tenantID == "" {
				core.JSONError(w, core.UnauthorizedError("tenant onboarding incomplete"))
				return
			}

			ctx := context.WithValue(r.Context(), TenantKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}
