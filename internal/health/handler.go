// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Check is a named dependency probed by the readiness endpoint. Optional
// checks report their state but never fail readiness.
type Check struct {
	Name     string
	Checker  Checker
	Optional bool
}

type Handler struct {
	checks   []Check
	shutdown atomic.Bool
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

// RegisterRoutes mounts the probes at the router root. They stay outside
// authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.failWhenShuttingDown)

		r.Get("/healthz", h.Liveness)
		r.Get("/livez", h.Liveness)
		r.Get("/readyz", h.Readiness)
	})
}

func (h *Handler) failWhenShuttingDown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.shutdown.Load() {
			writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Readiness is "ok" when every check passes, "degraded" when only optional
// checks fail and "unavailable" (503) otherwise.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	results := h.probe(ctx)

	resp := ReadinessResponse{Status: "ok", Checks: results}
	code := http.StatusOK
	for i, res := range results {
		switch {
		case res.Healthy:
		case h.checks[i].Optional:
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		default:
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeStatus(w, code, resp)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) probe(ctx context.Context) []HealthCheck {
	results := make([]HealthCheck, len(h.checks))

	var g errgroup.Group
	for i, c := range h.checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // checks report through results

	return results
}

func runCheck(ctx context.Context, c Check) HealthCheck {
	res := HealthCheck{Name: c.Name, Healthy: true}

	if c.Checker == nil {
		res.Healthy = false
		res.Message = "not configured"
		return res
	}

	start := time.Now()
	err := c.Checker.Ping(ctx)
	res.Latency = time.Since(start).String()

	if err != nil {
		res.Healthy = false
		res.Message = "ping failed"
	}

	return res
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	core.JSON(w, status, data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
