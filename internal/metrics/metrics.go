// Package metrics holds the Prometheus collectors extgen exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnippetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgen_snippets_total",
			Help: "Total number of extensions converted, by outcome (count)",
		},
		[]string{"status"},
	)

	ConvertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extgen_convert_duration_ms",
			Help:    "Conversion duration per extension in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
		},
		[]string{"status"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgen_api_requests_total",
			Help: "Total number of API requests, by method and status code (count)",
		},
		[]string{"method", "code"},
	)

	SandboxRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extgen_sandbox_runs_total",
			Help: "Total number of sandbox snippet executions, by outcome (count)",
		},
		[]string{"outcome"},
	)
)

// Collectors returns every extgen collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{SnippetsTotal, ConvertDuration, APIRequestsTotal, SandboxRunsTotal}
}

// MustRegister registers all collectors with reg, or with the default
// registerer when reg is nil.
func MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(Collectors()...)
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func IncSnippet(status string) {
	SnippetsTotal.WithLabelValues(status).Inc()
}

func ObserveConvertDuration(duration time.Duration, status string) {
	ConvertDuration.WithLabelValues(status).Observe(float64(duration.Microseconds()) / 1000)
}

func IncAPIRequest(method, code string) {
	APIRequestsTotal.WithLabelValues(method, code).Inc()
}

func IncSandboxRun(outcome string) {
	SandboxRunsTotal.WithLabelValues(outcome).Inc()
}
