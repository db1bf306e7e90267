// Package telemetry provides observability primitives for the newsgate gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheClears      prometheus.Counter
	UsageQueueLength prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgate",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "newsgate",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "newsgate",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "newsgate",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream news API call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"endpoint"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgate",
			Name:      "upstream_errors_total",
			Help:      "Total upstream news API errors.",
		}, []string{"endpoint", "status"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgate",
			Name:      "cache_hits_total",
			Help:      "Total response cache hits.",
		}, []string{"endpoint"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgate",
			Name:      "cache_misses_total",
			Help:      "Total response cache misses.",
		}, []string{"endpoint"}),

		CacheClears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsgate",
			Name:      "cache_clears_total",
			Help:      "Total explicit cache clears.",
		}),

		UsageQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "newsgate",
			Name:      "usage_queue_length",
			Help:      "Current number of queued usage records.",
		}),

		reg: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.CacheClears,
		m.UsageQueueLength,
	)

	return m
}

// RegisterCacheSize exposes the cache entry count as a gauge sampled at scrape time.
func (m *Metrics) RegisterCacheSize(size func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "newsgate",
		Name:      "cache_entries",
		Help:      "Approximate number of cached responses.",
	}, func() float64 { return float64(size()) }))
}
