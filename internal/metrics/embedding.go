package metrics

import "github.com/prometheus/client_golang/prometheus"

// Encoder metrics. Only the catalog loader embeds text; the API serves stored vectors.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Subsystem: "loader",
			Name:      "embedding_requests_total",
			Help:      "Embedding API calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Subsystem: "loader",
			Name:      "embedding_errors_total",
			Help:      "Failed embedding calls by cause",
		},
		[]string{"provider", "model", "error_type"}, // "api_error" / "count_mismatch"
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfwise",
			Subsystem: "loader",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding API call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	EmbeddingBatchTexts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shelfwise",
			Subsystem: "loader",
			Name:      "embedding_batch_texts",
			Help:      "Synopses sent per embedding call",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9), // 1..256
		},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfwise",
			Subsystem: "loader",
			Name:      "embedding_tokens_total",
			Help:      "Embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the encoder metrics. Called by the loader only.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingErrorsTotal,
		EmbeddingRequestDuration,
		EmbeddingBatchTexts,
		EmbeddingTokensTotal,
	)
	embMetricsRegistered = true
}
