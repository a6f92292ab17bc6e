// AngelaMos | 2026
// resolver_test.go

package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/testutil"
)

type fixture struct {
	db       *core.Database
	store    *flakyStore
	cache    *MemoryTenantCache
	users    *directory
	links    *LinkRepository
	linker   *Linker
	clock    *clock
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDatabase(t)
	store := newFlakyStore()
	cache := NewMemoryTenantCache(time.Minute)
	users := &directory{tenants: map[string]string{}}
	links := NewLinkRepository(db)

	linker := NewLinker(LinkerConfig{
		Links:       links,
		Store:       store,
		Cache:       cache,
		MetadataKey: "tenantId",
		Retry: RetryPolicy{
			BaseDelay:   time.Minute,
			MaxDelay:    10 * time.Minute,
			MaxAttempts: 5,
		},
	})
	clk := &clock{now: testutil.Now()}
	linker.now = clk.Now

	return &fixture{
		db:     db,
		store:  store,
		cache:  cache,
		users:  users,
		links:  links,
		linker: linker,
		clock:  clk,
		resolver: NewResolver(ResolverConfig{
			Store:       store,
			Cache:       cache,
			Users:       users,
			Linker:      linker,
			MetadataKey: "tenantId",
		}),
	}
}

// provisioned mimics a committed provisioning: tenant row, user mapping and
// pending outbox row, with no metadata written yet.
func (f *fixture) provisioned(t *testing.T, tenantID, identityID string) {
	t.Helper()

	testutil.InsertTenant(t, f.db, tenantID, "sub-"+tenantID)
	f.users.mu.Lock()
	f.users.tenants[identityID] = tenantID
	f.users.mu.Unlock()
	require.NoError(t, f.linker.Enqueue(context.Background(), f.db.DB, tenantID, identityID))
}

func TestResolveTenantRejectsEmptyIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.ResolveTenant(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestResolveTenantFromMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetPrivateMetadata(ctx, "user_1", map[string]any{"tenantId": "t-1"}))

	got, err := f.resolver.ResolveTenant(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got)

	cached, err := f.cache.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", cached)
}

func TestResolveTenantOnboardingIncomplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.resolver.ResolveTenant(ctx, "user_new")
	require.NoError(t, err)
	assert.Empty(t, got)

	cached, err := f.cache.Get(ctx, "user_new")
	require.NoError(t, err)
	assert.Empty(t, cached, "empty resolutions are not cached")
}

func TestResolveTenantRepairsMissingMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provisioned(t, "t-42", "user_42")

	got, err := f.resolver.ResolveTenant(ctx, "user_42")
	require.NoError(t, err)
	assert.Equal(t, "t-42", got)

	md, err := f.store.PrivateMetadata(ctx, "user_42")
	require.NoError(t, err)
	assert.Equal(t, "t-42", md["tenantId"])

	link, err := f.links.Get(ctx, "t-42")
	require.NoError(t, err)
	assert.True(t, link.Synced())
}

func TestResolveTenantProviderDownFallsBackToUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provisioned(t, "t-7", "user_7")
	f.store.down.Store(true)

	got, err := f.resolver.ResolveTenant(ctx, "user_7")
	require.NoError(t, err)
	assert.Equal(t, "t-7", got)

	link, err := f.links.Get(ctx, "t-7")
	require.NoError(t, err)
	assert.False(t, link.Synced())
	assert.Equal(t, 1, link.Attempts)
	assert.Contains(t, link.LastError, "provider down")
}

func TestResolveTenantStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.users.err = errors.New("connection reset")

	_, err := f.resolver.ResolveTenant(context.Background(), "user_x")
	assert.ErrorIs(t, err, core.ErrStorage)
}

func TestLinkerSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provisioned(t, "t-1", "user_1")

	require.NoError(t, f.linker.Sync(ctx, "t-1"))
	first, err := f.store.PrivateMetadata(ctx, "user_1")
	require.NoError(t, err)

	require.NoError(t, f.linker.Sync(ctx, "t-1"))
	second, err := f.store.PrivateMetadata(ctx, "user_1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"tenantId": "t-1"}, second)
	assert.Equal(t, int32(2), f.store.writes.Load())
}

func TestLinkerSyncUnknownTenant(t *testing.T) {
	f := newFixture(t)

	err := f.linker.Sync(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
