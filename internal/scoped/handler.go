// AngelaMos | 2026
// handler.go

package scoped

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/middleware"
)

// Handler exposes a scoped Service over HTTP. The tenant always comes from
// the authenticated identity, never from the request.
type Handler[T any, P any] struct {
	service *Service[T, P]
}

func NewHandler[T any, P any](service *Service[T, P]) *Handler[T, P] {
	return &Handler[T, P]{service: service}
}

func (h *Handler[T, P]) RegisterRoutes(
	r chi.Router,
	path string,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route(path, func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context(), middleware.GetIdentityID(r.Context()))
	if err != nil {
		core.Fail(w, r, err, h.service.Resource())
		return
	}

	core.OK(w, rows)
}

func (h *Handler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.Get(r.Context(), middleware.GetIdentityID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		core.Fail(w, r, err, h.service.Resource())
		return
	}

	core.OK(w, row)
}

func (h *Handler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var payload P
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	row, err := h.service.Create(r.Context(), middleware.GetIdentityID(r.Context()), payload)
	if err != nil {
		core.Fail(w, r, err, h.service.Resource())
		return
	}

	core.Created(w, row)
}

func (h *Handler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	var payload P
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	row, err := h.service.Update(
		r.Context(),
		middleware.GetIdentityID(r.Context()),
		chi.URLParam(r, "id"),
		payload,
	)
	if err != nil {
		core.Fail(w, r, err, h.service.Resource())
		return
	}

	core.OK(w, row)
}

func (h *Handler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.SoftDelete(r.Context(), middleware.GetIdentityID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		core.Fail(w, r, err, h.service.Resource())
		return
	}

	core.OK(w, row)
}
