// Package metrics exposes Prometheus collectors for the certification
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "certiqas",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certiqas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "certiqas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certiqas",
			Subsystem: "certification",
			Name:      "submissions_total",
			Help:      "Total number of certification submissions.",
		},
		[]string{"status"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certiqas",
			Subsystem: "certification",
			Name:      "decisions_total",
			Help:      "Total number of approve/reject decisions applied.",
		},
		[]string{"decision"},
	)

	mints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certiqas",
			Subsystem: "ledger",
			Name:      "mints_total",
			Help:      "Total number of mint attempts by outcome.",
		},
		[]string{"outcome"},
	)

	mintDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "certiqas",
			Subsystem: "ledger",
			Name:      "mint_duration_seconds",
			Help:      "Duration of mint submission plus confirmation.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 9), // 500ms to ~4m
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		submissions,
		decisions,
		mints,
		mintDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncInFlight increments the in-flight request gauge.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight decrements the in-flight request gauge.
func DecInFlight() { httpInFlight.Dec() }

// ObserveHTTPRequest records one handled HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission counts a submission that reached the given status.
func RecordSubmission(status string) {
	submissions.WithLabelValues(status).Inc()
}

// RecordDecision counts an applied decision.
func RecordDecision(decision string) {
	decisions.WithLabelValues(decision).Inc()
}

// RecordMint counts a mint attempt and its latency.
func RecordMint(outcome string, duration time.Duration) {
	mints.WithLabelValues(outcome).Inc()
	mintDuration.Observe(duration.Seconds())
}
