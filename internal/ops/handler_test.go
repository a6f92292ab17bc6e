// AngelaMos | 2026
// handler_test.go

package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
	"github.com/carterperez-dev/templates/pos-backend/internal/middleware"
)

type fakeReconciler struct {
	res *identity.ReconcileResult
	err error
}

func (f fakeReconciler) RunOnce(context.Context) (*identity.ReconcileResult, error) {
	return f.res, f.err
}

type fakeLinks struct {
	pending []identity.Link
	limit   int
}

func (f *fakeLinks) CountPending(context.Context) (int, error) { return len(f.pending), nil }

func (f *fakeLinks) ListPending(_ context.Context, limit int) ([]identity.Link, error) {
	f.limit = limit
	return f.pending, nil
}

type fakeLinker struct {
	synced []string
	err    error
}

func (f *fakeLinker) Sync(_ context.Context, tenantID string) error {
	if f.err != nil {
		return f.err
	}
	f.synced = append(f.synced, tenantID)
	return nil
}

type fakeTenants int

func (f fakeTenants) CountTenants(context.Context) (int, error) { return int(f), nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func router(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.RequireOperatorKey("secret"))
	return r
}

func do(t *testing.T, r http.Handler, method, path, key string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(middleware.OperatorKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRoutesRequireOperatorKey(t *testing.T) {
	r := router(NewHandler(HandlerConfig{}))

	for _, path := range []string{"/ops/stats", "/ops/identity-links/pending"} {
		rec, _ := do(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec, _ = do(t, r, http.MethodGet, path, "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestStats(t *testing.T) {
	r := router(NewHandler(HandlerConfig{
		DBStats: func() sql.DBStats { return sql.DBStats{MaxOpenConnections: 1, OpenConnections: 1} },
		DBPing:  func(context.Context) error { return nil },
		Tenants: fakeTenants(4),
		Links:   &fakeLinks{pending: make([]identity.Link, 3)},
	}))

	rec, body := do(t, r, http.MethodGet, "/ops/stats", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.True(t, stats.Database.Healthy)
	require.NotNil(t, stats.Database.Pool)
	assert.Equal(t, 1, stats.Database.Pool.MaxOpenConnections)
	assert.False(t, stats.Redis.Enabled)
	assert.Equal(t, 4, stats.Tenancy.Tenants)
	assert.Equal(t, 3, stats.Tenancy.PendingIdentityLinks)
	assert.NotEmpty(t, stats.Runtime.GoVersion)
}

func TestStatsReportsUnhealthyRedis(t *testing.T) {
	r := router(NewHandler(HandlerConfig{
		RedisPing: func(context.Context) error { return errors.New("down") },
	}))

	_, body := do(t, r, http.MethodGet, "/ops/stats", "secret")

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.True(t, stats.Redis.Enabled)
	assert.False(t, stats.Redis.Healthy)
	assert.Equal(t, -1, stats.Tenancy.Tenants)
}

func TestPendingLinks(t *testing.T) {
	next := time.Date(2026, 1, 2, 3, 6, 5, 0, time.UTC)
	links := &fakeLinks{pending: []identity.Link{{
		TenantID:      "t-1",
		IdentityID:    "user_1",
		Attempts:      2,
		LastError:     "provider down",
		NextAttemptAt: &next,
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}
	r := router(NewHandler(HandlerConfig{Links: links}))

	rec, body := do(t, r, http.MethodGet, "/ops/identity-links/pending?limit=10", "secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, links.limit)

	var out []PendingLink
	require.NoError(t, json.Unmarshal(body.Data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "t-1", out[0].TenantID)
	assert.Equal(t, 2, out[0].Attempts)
	assert.Equal(t, "provider down", out[0].LastError)
	require.NotNil(t, out[0].NextAttemptAt)
	assert.True(t, next.Equal(*out[0].NextAttemptAt))
	assert.Nil(t, out[0].ParkedAt)

	rec, _ = do(t, r, http.MethodGet, "/ops/identity-links/pending?limit=0", "secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcile(t *testing.T) {
	r := router(NewHandler(HandlerConfig{
		Reconciler: fakeReconciler{res: &identity.ReconcileResult{Attempted: 2, Synced: 2}},
	}))

	rec, body := do(t, r, http.MethodPost, "/ops/identity-links/reconcile", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var res identity.ReconcileResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 2, res.Synced)

	failing := router(NewHandler(HandlerConfig{
		Reconciler: fakeReconciler{err: errors.New("boom")},
	}))
	rec, _ = do(t, failing, http.MethodPost, "/ops/identity-links/reconcile", "secret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, router(NewHandler(HandlerConfig{})), http.MethodPost, "/ops/identity-links/reconcile", "secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncLink(t *testing.T) {
	linker := &fakeLinker{}
	r := router(NewHandler(HandlerConfig{Linker: linker}))

	rec, _ := do(t, r, http.MethodPost, "/ops/identity-links/t-9/sync", "secret")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"t-9"}, linker.synced)

	linker.err = core.ErrNotFound
	rec, _ = do(t, r, http.MethodPost, "/ops/identity-links/t-404/sync", "secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
