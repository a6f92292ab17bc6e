// AngelaMos | 2026
// metrics.go

// Package metrics owns the prometheus registry. Every method is safe on a
// nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	provisions   *prometheus.CounterVec
	linkSyncs    *prometheus.CounterVec
	pendingLinks prometheus.Gauge
	scopedOps    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		provisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_provisions_total",
			Help:      "Tenant provisioning attempts by result.",
		}, []string{"result"}),

		linkSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_link_syncs_total",
			Help:      "Identity metadata writes by result.",
		}, []string{"result"}),

		pendingLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identity_links_pending",
			Help:      "Identity links not yet written to the identity provider.",
		}),

		scopedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoped_operations_total",
			Help:      "Tenant-scoped repository operations by entity, operation and result.",
		}, []string{"entity", "op", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.provisions,
		m.linkSyncs,
		m.pendingLinks,
		m.scopedOps,
	)

	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveProvision counts one provisioning outcome: created, existing,
// conflict, invalid, unauthorized or failed.
func (m *Metrics) ObserveProvision(result string) {
	if m == nil {
		return
	}
	m.provisions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLinkSync(result string) {
	if m == nil {
		return
	}
	m.linkSyncs.WithLabelValues(result).Inc()
}

func (m *Metrics) SetPendingLinks(n int) {
	if m == nil {
		return
	}
	m.pendingLinks.Set(float64(n))
}

func (m *Metrics) ObserveScoped(entity, op, result string) {
	if m == nil {
		return
	}
	m.scopedOps.WithLabelValues(entity, op, result).Inc()
}
