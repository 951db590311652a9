package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Catalog store and access-gate Prometheus metrics.
var (
	CatalogQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfwise",
			Name:      "catalog_query_duration_seconds",
			Help:      "Catalog store query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "op", "status"},
	)

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Name:      "gate_decisions_total",
			Help:      "Access gate outcomes",
		},
		[]string{"decision"}, // "allowed" / "unauthenticated" / "forbidden"
	)
)

// ObserveCatalogQuery records one store operation.
func ObserveCatalogQuery(backend, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CatalogQueryDuration.WithLabelValues(backend, op, status).Observe(time.Since(start).Seconds())
}

var serviceMetricsRegistered bool

// Register registers HTTP, catalog, gate and language-model metrics. Must be called once from main.
func Register() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(HTTPRequestDuration, HTTPRequestsTotal, HTTPInFlight)
	prometheus.MustRegister(CatalogQueryDuration)
	prometheus.MustRegister(GateDecisionsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMBreakerState)
	prometheus.MustRegister(AlignmentMismatchTotal)
	serviceMetricsRegistered = true
}
