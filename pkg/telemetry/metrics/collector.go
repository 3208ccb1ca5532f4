// Package metrics exposes Prometheus counters and histograms for the
// controller's state-changing operations: applies, reconciliation
// diffs, rate-limit rejections, and watcher reloads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and updates every metric this controller emits.
type Collector struct {
	registry *prometheus.Registry

	applyTotal        *prometheus.CounterVec
	applyDuration     prometheus.Histogram
	filtersCreated    prometheus.Counter
	filtersRemoved    prometheus.Counter
	filtersUnchanged  prometheus.Counter
	rateLimitRejected *prometheus.CounterVec
	watcherReloads    *prometheus.CounterVec
	watcherLastApply  prometheus.Gauge
}

// NewCollector creates a Collector registered against registry. If
// registry is nil, a fresh prometheus.Registry is used so tests don't
// collide with the global default registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		applyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "apply_total",
			Help:      "Total policy apply operations by outcome.",
		}, []string{"status"}),
		applyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sentryfw",
			Name:      "apply_duration_seconds",
			Help:      "Duration of policy apply operations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		filtersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "filters_created_total",
			Help:      "Total kernel filters created across all applies.",
		}),
		filtersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "filters_removed_total",
			Help:      "Total kernel filters removed across all applies.",
		}),
		filtersUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "filters_unchanged_total",
			Help:      "Total kernel filters left unchanged across all applies.",
		}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "rate_limit_rejected_total",
			Help:      "Total requests rejected by the rate limiter by scope.",
		}, []string{"scope"}),
		watcherReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentryfw",
			Name:      "watcher_reload_total",
			Help:      "Total watcher-triggered policy reload attempts by outcome.",
		}, []string{"status"}),
		watcherLastApply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sentryfw",
			Name:      "watcher_last_apply_timestamp_seconds",
			Help:      "Unix timestamp of the watcher's most recent apply attempt.",
		}),
	}

	registry.MustRegister(
		c.applyTotal,
		c.applyDuration,
		c.filtersCreated,
		c.filtersRemoved,
		c.filtersUnchanged,
		c.rateLimitRejected,
		c.watcherReloads,
		c.watcherLastApply,
	)

	return c
}

// RecordApply records the outcome and shape of one ApplyFilters call.
func (c *Collector) RecordApply(status string, duration time.Duration, created, removed, unchanged int) {
	c.applyTotal.WithLabelValues(status).Inc()
	c.applyDuration.Observe(duration.Seconds())
	c.filtersCreated.Add(float64(created))
	c.filtersRemoved.Add(float64(removed))
	c.filtersUnchanged.Add(float64(unchanged))
}

// RecordRateLimitRejection records a request rejected by the rate
// limiter. scope is "identity" or "global".
func (c *Collector) RecordRateLimitRejection(scope string) {
	c.rateLimitRejected.WithLabelValues(scope).Inc()
}

// RecordWatcherReload records the outcome of one watcher-triggered
// reload attempt and updates the last-apply gauge.
func (c *Collector) RecordWatcherReload(status string, at time.Time) {
	c.watcherReloads.WithLabelValues(status).Inc()
	c.watcherLastApply.Set(float64(at.Unix()))
}

// Registry returns the underlying Prometheus registry, for building a
// /metrics handler or registering additional collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
