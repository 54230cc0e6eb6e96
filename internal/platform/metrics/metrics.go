package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace"

// Metrics holds the application's Prometheus collectors on a private registry.
type Metrics struct {
	Registry             *prometheus.Registry
	RequestLatency       *prometheus.HistogramVec
	ListingsCreated      prometheus.Counter
	ListingsDeleted      prometheus.Counter
	MessagesSent         prometheus.Counter
	NotificationFailures prometheus.Counter
	LiveUnreadClients    prometheus.Gauge
	SearchIndexBuilds    prometheus.Counter
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		ListingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_deleted_total",
			Help:      "Total number of listings deleted.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of buyer messages persisted.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Seller notification emails that could not be delivered.",
		}),
		LiveUnreadClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unread_live_clients",
			Help:      "Open websocket connections receiving unread counts.",
		}),
		SearchIndexBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_index_builds_total",
			Help:      "Number of times the listing search index was rebuilt.",
		}),
	}
	m.Registry.MustRegister(
		m.RequestLatency,
		m.ListingsCreated,
		m.ListingsDeleted,
		m.MessagesSent,
		m.NotificationFailures,
		m.LiveUnreadClients,
		m.SearchIndexBuilds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// The helpers below are nil-safe so services can run without metrics in tests.

func (m *Metrics) ListingCreated() {
	if m != nil {
		m.ListingsCreated.Inc()
	}
}

func (m *Metrics) ListingDeleted() {
	if m != nil {
		m.ListingsDeleted.Inc()
	}
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.MessagesSent.Inc()
	}
}

func (m *Metrics) NotificationFailed() {
	if m != nil {
		m.NotificationFailures.Inc()
	}
}

func (m *Metrics) IndexBuilt() {
	if m != nil {
		m.SearchIndexBuilds.Inc()
	}
}

func (m *Metrics) LiveClientOpened() {
	if m != nil {
		m.LiveUnreadClients.Inc()
	}
}

func (m *Metrics) LiveClientClosed() {
	if m != nil {
		m.LiveUnreadClients.Dec()
	}
}
