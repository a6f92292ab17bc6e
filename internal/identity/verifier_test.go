// AngelaMos | 2026
// verifier_test.go

package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

const testIssuer = "https://identity.example.com"

type signer struct {
	private jwk.Key
	public  jwk.Set
}

func newSigner(t *testing.T) *signer {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	private, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, private.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, private.Set(jwk.AlgorithmKey, jwa.ES256()))

	public, err := jwk.PublicKeyOf(private)
	require.NoError(t, err)
	require.NoError(t, public.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, public.Set(jwk.AlgorithmKey, jwa.ES256()))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(public))

	return &signer{private: private, public: set}
}

func (s *signer) token(t *testing.T, subject, issuer string, exp time.Time) string {
	t.Helper()

	b := jwt.NewBuilder().
		Issuer(issuer).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(exp)
	if subject != "" {
		b = b.Subject(subject)
	}

	tok, err := b.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), s.private))
	require.NoError(t, err)

	return string(signed)
}

func TestJWTVerifier(t *testing.T) {
	s := newSigner(t)
	v := NewJWTVerifierFromSet(s.public, testIssuer, "")
	ctx := context.Background()

	t.Run("valid token yields subject", func(t *testing.T) {
		id, err := v.Verify(ctx, s.token(t, "user_123", testIssuer, time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, "user_123", id.ID)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := v.Verify(ctx, s.token(t, "user_123", testIssuer, time.Now().Add(-time.Hour)))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := v.Verify(ctx, s.token(t, "user_123", "https://evil.example.com", time.Now().Add(time.Hour)))
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Verify(ctx, s.token(t, "", testIssuer, time.Now().Add(time.Hour)))
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("foreign key", func(t *testing.T) {
		other := newSigner(t)
		_, err := v.Verify(ctx, other.token(t, "user_123", testIssuer, time.Now().Add(time.Hour)))
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})
}

func TestNewJWTVerifierFromFile(t *testing.T) {
	s := newSigner(t)

	raw, err := json.Marshal(s.public)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	v, err := NewJWTVerifier(context.Background(), config.IdentityConfig{
		Issuer:   testIssuer,
		JWKSPath: path,
	})
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), s.token(t, "user_file", testIssuer, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user_file", id.ID)
}

func TestNewJWTVerifierRequiresSource(t *testing.T) {
	_, err := NewJWTVerifier(context.Background(), config.IdentityConfig{Issuer: testIssuer})
	assert.Error(t, err)
}

func TestHeaderVerifier(t *testing.T) {
	var v HeaderVerifier

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(IdentityHeader, "  user_dev ")
	assert.Equal(t, "user_dev", v.TokenFromRequest(req))

	id, err := v.Verify(context.Background(), "user_dev")
	require.NoError(t, err)
	assert.Equal(t, "user_dev", id.ID)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
