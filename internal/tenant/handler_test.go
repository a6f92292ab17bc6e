// AngelaMos | 2026
// handler_test.go

package tenant

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
	"github.com/carterperez-dev/templates/pos-backend/internal/middleware"
)

func newRouter(h *harness) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		NewHandler(h.service, h.resolver).RegisterRoutes(r, middleware.Authenticator(identity.HeaderVerifier{}))
	})
	return r
}

func call(t *testing.T, router http.Handler, method, path, identityID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identityID != "" {
		req.Header.Set(identity.IdentityHeader, identityID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if into != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func TestProvisionEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	router := newRouter(h)

	rec := call(t, router, http.MethodGet, "/v1/me/tenant", "user_a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var membership MembershipResponse
	decode(t, rec, &membership)
	assert.True(t, membership.Onboarding)
	assert.Nil(t, membership.TenantID)

	rec = call(t, router, http.MethodGet, "/v1/tenants/me", "user_a", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "tenant routes fail closed before onboarding")

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ProvisionResult
	decode(t, rec, &created)
	require.NotEmpty(t, created.TenantID)

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.Equal(t, http.StatusOK, rec.Code)
	var again ProvisionResult
	decode(t, rec, &again)
	assert.Equal(t, created.TenantID, again.TenantID)
	assert.True(t, again.Existing)

	rec = call(t, router, http.MethodGet, "/v1/me/tenant", "user_a", nil)
	decode(t, rec, &membership)
	require.NotNil(t, membership.TenantID)
	assert.Equal(t, created.TenantID, *membership.TenantID)

	rec = call(t, router, http.MethodGet, "/v1/tenants/me", "user_a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile TenantResponse
	decode(t, rec, &profile)
	assert.Equal(t, "ACME", profile.Config[ConfigInvoicePrefix])

	rec = call(t, router, http.MethodPut, "/v1/tenants/me", "user_a", map[string]string{"city": "Medellín"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	assert.Equal(t, "Medellín", profile.City)
}

func TestProvisionEndpointErrors(t *testing.T) {
	h := newHarness(t, nil)
	router := newRouter(h)

	rec := call(t, router, http.MethodPost, "/v1/tenants", "", request("user_a", "Acme S.A.S", "acme"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_a", request("user_b", "Acme S.A.S", "acme"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "IDENTITY_MISMATCH", decode(t, rec, nil).Error.Code)

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_a", request("user_a", "Acme S.A.S", "-bad-"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_a", request("user_a", "Acme S.A.S", "acme"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, router, http.MethodPost, "/v1/tenants", "user_b", request("user_b", "Acme S.A.S", "acme"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec, nil).Error.Code)
}
