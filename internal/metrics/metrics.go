// Package metrics provides Prometheus metric collection and exposure.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the metrics interface used by the watch layer and HTTP
// middleware.
type Collector interface {
	SubscriptionOpened(collection string)
	SubscriptionClosed(collection string)
	RecordSnapshot(collection string)
	RecordQueryFailure(collection string)
	RecordHTTPRequest(method string, statusCode int)
}

// PrometheusCollector registers and records Prometheus metrics.
type PrometheusCollector struct {
	activeSubscriptions *prometheus.GaugeVec
	snapshots           *prometheus.CounterVec
	queryFailures       *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
}

// NewCollector creates a PrometheusCollector and registers its metrics
// with the given registry.
func NewCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		activeSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "todo_watch_subscriptions_active",
			Help: "Live subscriptions per collection",
		}, []string{"collection"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_watch_snapshots_total",
			Help: "Snapshots delivered per collection",
		}, []string{"collection"}),
		queryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_watch_query_failures_total",
			Help: "Snapshot queries that failed per collection",
		}, []string{"collection"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.activeSubscriptions,
		c.snapshots,
		c.queryFailures,
		c.httpRequests,
	)

	return c
}

func (c *PrometheusCollector) SubscriptionOpened(collection string) {
	c.activeSubscriptions.WithLabelValues(collection).Inc()
}

func (c *PrometheusCollector) SubscriptionClosed(collection string) {
	c.activeSubscriptions.WithLabelValues(collection).Dec()
}

func (c *PrometheusCollector) RecordSnapshot(collection string) {
	c.snapshots.WithLabelValues(collection).Inc()
}

func (c *PrometheusCollector) RecordQueryFailure(collection string) {
	c.queryFailures.WithLabelValues(collection).Inc()
}

func (c *PrometheusCollector) RecordHTTPRequest(method string, statusCode int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NopCollector discards all metrics. Used in tests.
type NopCollector struct{}

func (NopCollector) SubscriptionOpened(string) {}
func (NopCollector) SubscriptionClosed(string) {}
func (NopCollector) RecordSnapshot(string) {}
func (NopCollector) RecordQueryFailure(string) {}
func (NopCollector) RecordHTTPRequest(string, int) {}
