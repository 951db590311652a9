package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language-model Prometheus metrics (deep-dive pipeline).
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Name:      "llm_requests_total",
			Help:      "Total number of language-model requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfwise",
			Name:      "llm_request_duration_seconds",
			Help:      "Language-model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Name:      "llm_tokens_total",
			Help:      "Total language-model tokens consumed",
		},
		[]string{"model", "type"},
	)

	LLMBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelfwise",
			Name:      "llm_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	AlignmentMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Name:      "deep_dive_alignment_mismatch_total",
			Help:      "Deep-dive responses whose segment count did not match the candidate count",
		},
	)
)
