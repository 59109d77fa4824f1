// Package metrics exposes Prometheus instrumentation for generation jobs.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genstudio",
			Subsystem: "jobs",
			Name:      "submissions_total",
			Help:      "Generation submissions grouped by media kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genstudio",
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "Jobs reaching a terminal status, grouped by media kind and status.",
		},
		[]string{"kind", "status"},
	)
	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genstudio",
			Subsystem: "jobs",
			Name:      "bookkeeping_warnings_total",
			Help:      "Best-effort store writes that failed after the primary operation succeeded.",
		},
		[]string{"op"},
	)
	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genstudio",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Latency of provider API calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation", "outcome"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "genstudio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(submissionsTotal, transitionsTotal, warningsTotal, providerDuration, httpDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// RecordSubmission counts one submission attempt.
func RecordSubmission(kind, outcome string) {
	submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTransition counts a job reaching status.
func RecordTransition(kind, status string) {
	transitionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordWarning counts a failed bookkeeping write.
func RecordWarning(op string) {
	warningsTotal.WithLabelValues(op).Inc()
}

// ObserveProviderCall records the latency of a provider call started at
// start. errp is read when the call is observed, so it can be deferred with a
// pointer to a named error result.
func ObserveProviderCall(operation string, start time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
	}
	providerDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
