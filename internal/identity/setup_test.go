// AngelaMos | 2026
// setup_test.go

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
)

func TestOfflineSetup(t *testing.T) {
	cfg := config.IdentityConfig{Offline: true}

	v, err := NewVerifier(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, HeaderVerifier{}, v)

	assert.IsType(t, &MemoryMetadataStore{}, NewMetadataStore(cfg))
	assert.IsType(t, &MemoryTenantCache{}, NewTenantCache(nil, time.Minute))
}

func TestOnlineSetup(t *testing.T) {
	cfg := config.IdentityConfig{APIURL: "https://idp.example.test", SecretKey: "sk"}
	assert.IsType(t, &HTTPMetadataStore{}, NewMetadataStore(cfg))

	_, err := NewVerifier(context.Background(), cfg)
	assert.Error(t, err)
}
