// AngelaMos | 2026
// verifier.go

package identity

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

// JWTVerifier validates session tokens issued by the identity provider
// against its published key set.
type JWTVerifier struct {
	keys     jwk.Set
	issuer   string
	audience string
}

func NewJWTVerifier(
	ctx context.Context,
	cfg config.IdentityConfig,
) (*JWTVerifier, error) {
	var (
		keys jwk.Set
		err  error
	)

	switch {
	case cfg.JWKSPath != "":
		raw, readErr := os.ReadFile(cfg.JWKSPath)
		if readErr != nil {
			return nil, fmt.Errorf("read jwks: %w", readErr)
		}
		keys, err = jwk.Parse(raw)
	case cfg.JWKSURL != "":
		keys, err = jwk.Fetch(ctx, cfg.JWKSURL)
	default:
		return nil, fmt.Errorf("no jwks source configured")
	}
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	if keys.Len() == 0 {
		return nil, fmt.Errorf("jwks contains no keys")
	}

	return NewJWTVerifierFromSet(keys, cfg.Issuer, cfg.Audience), nil
}

func NewJWTVerifierFromSet(keys jwk.Set, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(v.keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := parsed.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	return &Identity{ID: subject}, nil
}

func isTokenExpiredError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, `"exp"`) &&
		(strings.Contains(errStr, "not satisfied") ||
			strings.Contains(errStr, "expired"))
}

// HeaderVerifier trusts the X-Identity-ID header. It exists for offline
// development against the in-memory metadata store and is refused by
// config validation in production.
type HeaderVerifier struct{}

const IdentityHeader = "X-Identity-ID"

func (HeaderVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	return &Identity{ID: token}, nil
}

// TokenFromRequest extracts what a HeaderVerifier expects.
func (HeaderVerifier) TokenFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdentityHeader))
}
