// Package metrics exposes Prometheus collectors for provider attempts,
// failovers and result-cache lookups.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compliance_ocr"

// Collector holds the analysis metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	failovers       *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec
}

// NewCollector creates and registers the collectors. A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider attempts by outcome",
			},
			[]string{"provider", "status"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Duration of single provider attempts",
				// Vision calls run from sub-second to tens of seconds
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider"},
		),
		failovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failovers_total",
				Help:      "Times a provider was abandoned for the next candidate",
			},
			[]string{"from"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(c.attempts, c.attemptDuration, c.failovers, c.cacheRequests)
	return c
}

// ObserveAttempt records one provider attempt.
func (c *Collector) ObserveAttempt(provider, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(provider, status).Inc()
	c.attemptDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// IncFailover records that provider failed and the next candidate is tried.
func (c *Collector) IncFailover(provider string) {
	if c == nil {
		return
	}
	c.failovers.WithLabelValues(provider).Inc()
}

// ObserveCache records a cache lookup; hit selects the label.
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Attempts returns the attempt counter.
func (c *Collector) Attempts() *prometheus.CounterVec { return c.attempts }

// Failovers returns the failover counter.
func (c *Collector) Failovers() *prometheus.CounterVec { return c.failovers }

// CacheRequests returns the cache lookup counter.
func (c *Collector) CacheRequests() *prometheus.CounterVec { return c.cacheRequests }
