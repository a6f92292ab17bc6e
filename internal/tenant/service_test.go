// AngelaMos | 2026
// service_test.go

package tenant

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/catalog"
	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
	"github.com/carterperez-dev/templates/pos-backend/internal/scoped"
	"github.com/carterperez-dev/templates/pos-backend/internal/testutil"
)

type harness struct {
	db       *core.Database
	store    *identity.MemoryMetadataStore
	links    *identity.LinkRepository
	repo     *Repository
	resolver *identity.Resolver
	catalog  *catalog.Catalog
	service  *Service
}

func newHarness(t *testing.T, seeder func(*catalog.Catalog) Seeder) *harness {
	t.Helper()

	db := testutil.NewDatabase(t)
	store := identity.NewMemoryMetadataStore()
	links := identity.NewLinkRepository(db)
	linker := identity.NewLinker(identity.LinkerConfig{
		Links:       links,
		Store:       store,
		MetadataKey: "tenantId",
	})
	repo := NewRepository(db)
	resolver := identity.NewResolver(identity.ResolverConfig{
		Store:       store,
		Users:       repo,
		Linker:      linker,
		MetadataKey: "tenantId",
	})
	cat := catalog.New(db, scoped.ServiceConfig{Resolver: resolver})

	var s Seeder = cat
	if seeder != nil {
		s = seeder(cat)
	}

	return &harness{
		db:       db,
		store:    store,
		links:    links,
		repo:     repo,
		resolver: resolver,
		catalog:  cat,
		service: NewService(ServiceConfig{
			DB:         db,
			Repository: repo,
			Seeder:     s,
			Linker:     linker,
			Provisioning: config.ProvisioningConfig{
				Currency:    "COP",
				OverdueDays: 30,
			},
		}),
	}
}

func (h *harness) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.DB.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+table))
	return n
}

func request(identityID, companyName, subdomain string) ProvisionRequest {
	return ProvisionRequest{
		IdentityID: identityID,
		User: UserProfile{
			Email:     identityID + "@example.com",
			Username:  identityID,
			FirstName: "Ana",
			LastName:  "Gómez",
		},
		Tenant: TenantProfile{
			CompanyName: companyName,
			Subdomain:   subdomain,
			Phone:       "+57 300 123 4567",
			Address:     "Calle 10 # 20-30, Bogotá",
			City:        "Bogotá",
			Department:  "Cundinamarca",
			NIT:         "900123456-7",
		},
	}
}

func TestProvisionAcme(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := h.service.Provision(ctx, "user_acme", request("user_acme", "Acme S.A.S", "acme"))
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.NotEmpty(t, res.TenantID)
	assert.NotEmpty(t, res.UserID)

	tenant, configs, err := h.service.Profile(ctx, res.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "Acme S.A.S", tenant.Name)
	assert.Equal(t, "acme", tenant.Subdomain)
	assert.Equal(t, "user_acme@example.com", tenant.Email)

	byKey := map[string]SystemConfig{}
	for _, c := range configs {
		byKey[c.Key] = c
	}
	require.Len(t, byKey, 5)
	assert.Equal(t, "ACME", byKey[ConfigInvoicePrefix].Value)
	assert.Equal(t, "1", byKey[ConfigNextInvoiceNumber].Value)
	assert.Equal(t, ConfigNumber, byKey[ConfigNextInvoiceNumber].Type)
	assert.Equal(t, "Acme S.A.S", byKey[ConfigCompanyName].Value)
	assert.Equal(t, "COP", byKey[ConfigCurrency].Value)
	assert.Equal(t, "30", byKey[ConfigOverdueDays].Value)

	payments, err := h.catalog.PaymentMethods.List(ctx, "user_acme")
	require.NoError(t, err)
	assert.Len(t, payments, 3)

	units, err := h.catalog.UnitMeasures.List(ctx, "user_acme")
	require.NoError(t, err)
	assert.Len(t, units, 4)

	categories, err := h.catalog.Categories.List(ctx, "user_acme")
	require.NoError(t, err)
	require.Len(t, categories, 5)

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
		assert.Equal(t, res.TenantID, c.TenantID)
		assert.False(t, c.IsDeleted)
	}
	assert.Equal(t, []string{"Cerveza", "Ron", "Vino", "Vodka", "Whisky"}, names)

	md, err := h.store.PrivateMetadata(ctx, "user_acme")
	require.NoError(t, err)
	assert.Equal(t, res.TenantID, md["tenantId"])

	link, err := h.links.Get(ctx, res.TenantID)
	require.NoError(t, err)
	assert.True(t, link.Synced())
}

func TestProvisionPreconditions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := h.service.Provision(ctx, "", request("user_a", "Acme S.A.S", "acme"))
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("identity mismatch is forbidden", func(t *testing.T) {
		_, err := h.service.Provision(ctx, "user_a", request("user_b", "Acme S.A.S", "acme"))
		require.ErrorIs(t, err, core.ErrUnauthorized)

		appErr, ok := core.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
	})

	t.Run("invalid payload", func(t *testing.T) {
		req := request("user_a", "A", "no spaces allowed")
		_, err := h.service.Provision(ctx, "user_a", req)
		require.ErrorIs(t, err, core.ErrInvalidInput)

		var invalid *core.InvalidInputError
		require.True(t, errors.As(err, &invalid))
		fields := map[string]bool{}
		for _, f := range invalid.Fields {
			fields[f.Field] = true
		}
		assert.True(t, fields["tenant.companyName"])
		assert.True(t, fields["tenant.subdomain"])
	})

	assert.Zero(t, h.count(t, "tenants"), "no precondition failure writes anything")
}

func TestProvisionSubdomainTaken(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.service.Provision(ctx, "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.NoError(t, err)

	_, err = h.service.Provision(ctx, "user_b", request("user_b", "Acme Dos", "acme"))
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 1, h.count(t, "tenants"))
	assert.Equal(t, 1, h.count(t, "users"))
}

func TestProvisionExistingIdentityReturnsTenant(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.service.Provision(ctx, "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.NoError(t, err)

	second, err := h.service.Provision(ctx, "user_a", request("user_a", "Otra", "otra"))
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.TenantID, second.TenantID)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, 1, h.count(t, "tenants"))
}

type failingSeeder struct {
	inner Seeder
}

func (f failingSeeder) Seed(ctx context.Context, db core.DBTX, tenantID string, at time.Time) error {
	if err := f.inner.Seed(ctx, db, tenantID, at); err != nil {
		return err
	}
	return errors.New("disk full")
}

func TestProvisionIsAtomic(t *testing.T) {
	h := newHarness(t, func(c *catalog.Catalog) Seeder { return failingSeeder{inner: c} })
	ctx := context.Background()

	_, err := h.service.Provision(ctx, "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.ErrorIs(t, err, core.ErrStorage)

	for _, table := range []string{
		"tenants", "users", "system_configs", "payment_methods",
		"unit_measures", "categories", "identity_links",
	} {
		assert.Zero(t, h.count(t, table), table)
	}

	md, err := h.store.PrivateMetadata(ctx, "user_a")
	require.NoError(t, err)
	assert.Empty(t, md)

	tenantID, err := h.resolver.ResolveTenant(ctx, "user_a")
	require.NoError(t, err)
	assert.Empty(t, tenantID)
}

func TestProvisionConcurrentSubdomain(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"user_a", "user_b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.service.Provision(ctx, id, request(id, "Acme S.A.S", "acme"))
		}()
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)
	assert.Equal(t, 1, h.count(t, "tenants"))
}

func TestProvisionLinkFailureIsDeferred(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	down := &downStore{}
	linker := identity.NewLinker(identity.LinkerConfig{
		Links:       h.links,
		Store:       down,
		MetadataKey: "tenantId",
	})
	h.service.linker = linker

	res, err := h.service.Provision(ctx, "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.NoError(t, err, "a metadata failure does not fail provisioning")

	link, err := h.links.Get(ctx, res.TenantID)
	require.NoError(t, err)
	assert.False(t, link.Synced())
	assert.Equal(t, 1, link.Attempts)

	tenantID, err := h.resolver.ResolveTenant(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, res.TenantID, tenantID, "the users table still resolves the tenant")
}

type downStore struct{}

func (downStore) PrivateMetadata(context.Context, string) (map[string]any, error) {
	return nil, identity.ErrProvider
}

func (downStore) SetPrivateMetadata(context.Context, string, map[string]any) error {
	return identity.ErrProvider
}

func TestUpdateProfileKeepsSubdomain(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := h.service.Provision(ctx, "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.NoError(t, err)

	name := "Acme Licores S.A.S"
	tenant, _, err := h.service.UpdateProfile(ctx, res.TenantID, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, tenant.Name)
	assert.Equal(t, "acme", tenant.Subdomain)

	_, _, err = h.service.UpdateProfile(ctx, "missing", UpdateProfileRequest{Name: &name})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
