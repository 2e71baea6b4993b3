// Package metrics holds the Prometheus instruments for the monitoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all counters. Constructed once per process; tests that need
// isolation pass their own registerer.
type Metrics struct {
	ChecksTotal         prometheus.Counter
	CheckFailuresTotal  prometheus.Counter
	ChangesDetected     *prometheus.CounterVec
	ProviderErrorsTotal prometheus.Counter
	RateLimitedTotal    prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	AlertsSentTotal     *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChecksTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_checks_total",
			Help: "Total monitor/engine checks attempted.",
		}),
		CheckFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_check_failures_total",
			Help: "Checks skipped after retries exhausted or admission failed.",
		}),
		ChangesDetected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "citewatch_changes_detected_total",
			Help: "Citation changes detected, by change type.",
		}, []string{"type"}),
		ProviderErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_provider_errors_total",
			Help: "Failed calls to the answer-engine provider.",
		}),
		RateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_rate_limited_total",
			Help: "Checks rejected by local admission control.",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_cache_hits_total",
			Help: "Snapshot cache hits.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "citewatch_cache_misses_total",
			Help: "Snapshot cache misses.",
		}),
		AlertsSentTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "citewatch_alerts_sent_total",
			Help: "Notifications dispatched, by channel.",
		}, []string{"channel"}),
	}
}
