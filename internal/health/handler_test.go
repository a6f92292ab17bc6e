// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/testutil"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func readiness(t *testing.T, h *Handler) (int, ReadinessResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	down := pinger{err: errors.New("refused")}

	code, body := readiness(t, NewHandler(Check{Name: "database", Checker: pinger{}}))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	code, body = readiness(t, NewHandler(
		Check{Name: "database", Checker: pinger{}},
		Check{Name: "redis", Checker: down, Optional: true},
	))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 2)
	assert.False(t, body.Checks[1].Healthy)

	code, body = readiness(t, NewHandler(Check{Name: "database", Checker: down}))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body.Status)
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler(Check{Name: "database", Checker: pinger{}})
	h.SetShutdown(true)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	for _, path := range []string{"/livez", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestSchemaCheck(t *testing.T) {
	db := testutil.NewDatabase(t)
	ctx := context.Background()

	assert.NoError(t, Schema(db.DB, "tenants", "users", "identity_links").Ping(ctx))

	err := Schema(db.DB, "tenants", "invoices").Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")
}
