// AngelaMos | 2026
// handler.go

package tenant

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/middleware"
)

type Resolver interface {
	ResolveTenant(ctx context.Context, identityID string) (string, error)
}

type Handler struct {
	service  *Service
	resolver Resolver
}

func NewHandler(service *Service, resolver Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/tenants", h.Provision)
		r.Get("/me/tenant", h.Membership)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenant(h.resolver))

			r.Get("/tenants/me", h.GetProfile)
			r.Put("/tenants/me", h.UpdateProfile)
		})
	})
}

func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	res, err := h.service.Provision(r.Context(), middleware.GetIdentityID(r.Context()), req)
	if err != nil {
		core.Fail(w, r, err, "tenant")
		return
	}

	if res.Existing {
		core.OK(w, res)
		return
	}
	core.Created(w, res)
}

func (h *Handler) Membership(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.resolver.ResolveTenant(r.Context(), middleware.GetIdentityID(r.Context()))
	if err != nil {
		core.Fail(w, r, err, "tenant")
		return
	}

	if tenantID == "" {
		core.OK(w, MembershipResponse{Onboarding: true})
		return
	}
	core.OK(w, MembershipResponse{TenantID: &tenantID})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	t, configs, err := h.service.Profile(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		core.Fail(w, r, err, "tenant")
		return
	}

	core.OK(w, ToTenantResponse(t, configs))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	t, configs, err := h.service.UpdateProfile(r.Context(), middleware.GetTenantID(r.Context()), req)
	if err != nil {
		core.Fail(w, r, err, "tenant")
		return
	}

	core.OK(w, ToTenantResponse(t, configs))
}
