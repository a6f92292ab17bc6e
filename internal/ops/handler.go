// AngelaMos | 2026
// handler.go

// Package ops serves the operator surface: pool and runtime statistics and
// manual repair of identity provider links.
package ops

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/identity"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

type Reconciler interface {
	RunOnce(ctx context.Context) (*identity.ReconcileResult, error)
}

type LinkStore interface {
	CountPending(ctx context.Context) (int, error)
	ListPending(ctx context.Context, limit int) ([]identity.Link, error)
}

type Linker interface {
	Sync(ctx context.Context, tenantID string) error
}

type TenantCounter interface {
	CountTenants(ctx context.Context) (int, error)
}

type Handler struct {
	cfg HandlerConfig
}

// HandlerConfig wires the handler to its sources. Nil fields are reported
// as absent rather than failing the request.
type HandlerConfig struct {
	DBStats    func() sql.DBStats
	DBPing     func(ctx context.Context) error
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	Tenants    TenantCounter
	Links      LinkStore
	Linker     Linker
	Reconciler Reconciler
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// RegisterRoutes mounts the operator surface under /ops behind guard.
func (h *Handler) RegisterRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Route("/ops", func(r chi.Router) {
		r.Use(guard)

		r.Get("/stats", h.Stats)
		r.Get("/stats/runtime", h.RuntimeStats)

		r.Route("/identity-links", func(r chi.Router) {
			r.Get("/pending", h.PendingLinks)
			r.Post("/reconcile", h.Reconcile)
			r.Post("/{tenantID}/sync", h.SyncLink)
		})
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	core.OK(w, StatsResponse{
		Database: h.databaseStatus(ctx),
		Redis:    h.redisStatus(ctx),
		Tenancy:  h.tenancy(ctx),
		Runtime:  readRuntime(),
	})
}

func (h *Handler) RuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntime())
}

// PendingLinks lists tenants whose id has not reached the identity
// provider yet, oldest first. Parked links are included.
func (h *Handler) PendingLinks(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Links == nil {
		core.NotFound(w, "identity links")
		return
	}

	limit := defaultPendingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPendingLimit {
			core.BadRequest(w, "limit must be between 1 and "+strconv.Itoa(maxPendingLimit))
			return
		}
		limit = n
	}

	links, err := h.cfg.Links.ListPending(r.Context(), limit)
	if err != nil {
		core.Fail(w, r, err, "identity links")
		return
	}

	out := make([]PendingLink, 0, len(links))
	for _, l := range links {
		out = append(out, PendingLink{
			TenantID:      l.TenantID,
			IdentityID:    l.IdentityID,
			Attempts:      l.Attempts,
			LastError:     l.LastError,
			NextAttemptAt: l.NextAttemptAt,
			ParkedAt:      l.ParkedAt,
			CreatedAt:     l.CreatedAt,
		})
	}

	core.OK(w, out)
}

// Reconcile runs one reconciliation batch on demand.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Reconciler == nil {
		core.NotFound(w, "reconciler")
		return
	}

	res, err := h.cfg.Reconciler.RunOnce(r.Context())
	if err != nil {
		core.Fail(w, r, err, "reconciler")
		return
	}

	core.OK(w, res)
}

// SyncLink pushes a single tenant's id to the identity provider.
func (h *Handler) SyncLink(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Linker == nil {
		core.NotFound(w, "identity links")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.cfg.Linker.Sync(r.Context(), tenantID); err != nil {
		core.Fail(w, r, err, "identity link")
		return
	}

	core.NoContent(w)
}

func (h *Handler) databaseStatus(ctx context.Context) DatabaseStatus {
	st := DatabaseStatus{Healthy: true}
	if h.cfg.DBPing != nil && h.cfg.DBPing(ctx) != nil {
		st.Healthy = false
	}
	if h.cfg.DBStats == nil {
		return st
	}

	s := h.cfg.DBStats()
	st.Pool = &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
	return st
}

func (h *Handler) redisStatus(ctx context.Context) RedisStatus {
	if h.cfg.RedisPing == nil && h.cfg.RedisStats == nil {
		return RedisStatus{}
	}

	st := RedisStatus{Enabled: true, Healthy: true}
	if h.cfg.RedisPing != nil && h.cfg.RedisPing(ctx) != nil {
		st.Healthy = false
	}
	if h.cfg.RedisStats != nil {
		s := h.cfg.RedisStats()
		st.Pool = &RedisPoolStats{
			Hits:       s.Hits,
			Misses:     s.Misses,
			Timeouts:   s.Timeouts,
			TotalConns: s.TotalConns,
			IdleConns:  s.IdleConns,
			StaleConns: s.StaleConns,
		}
	}
	return st
}

// tenancy reports -1 for any count it could not read.
func (h *Handler) tenancy(ctx context.Context) TenancyStats {
	st := TenancyStats{Tenants: -1, PendingIdentityLinks: -1}

	if h.cfg.Tenants != nil {
		if n, err := h.cfg.Tenants.CountTenants(ctx); err == nil {
			st.Tenants = n
		}
	}
	if h.cfg.Links != nil {
		if n, err := h.cfg.Links.CountPending(ctx); err == nil {
			st.PendingIdentityLinks = n
		}
	}
	return st
}

func readRuntime() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}
