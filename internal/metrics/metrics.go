package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricing"

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated prometheus.Counter
	SessionsEnded   prometheus.Counter
	ModeChanges     *prometheus.CounterVec
	PromoAttempts   *prometheus.CounterVec
	PromoSavings    prometheus.Counter
	Checkouts       *prometheus.CounterVec
	CatalogLoads    *prometheus.CounterVec
	CatalogEvents   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Order-summary sessions started.",
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Order-summary sessions explicitly ended.",
		}),
		ModeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillment_mode_changes_total",
			Help:      "Fulfillment mode selections by mode.",
		}, []string{"mode"}),
		PromoAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_attempts_total",
			Help:      "Promo code submissions by outcome.",
		}, []string{"result"}),
		PromoSavings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_savings_naira_total",
			Help:      "Naira discounted by accepted promo codes.",
		}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout summaries produced by mode.",
		}, []string{"mode"}),
		CatalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog lookups by the layer that answered.",
		}, []string{"source"}),
		CatalogEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_events_total",
			Help:      "Catalog change events by type and direction.",
		}, []string{"type", "direction"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.SessionsCreated,
		m.SessionsEnded,
		m.ModeChanges,
		m.PromoAttempts,
		m.PromoSavings,
		m.Checkouts,
		m.CatalogLoads,
		m.CatalogEvents,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
