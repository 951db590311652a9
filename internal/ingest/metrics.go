package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks catalog load progress.
type Metrics struct {
	rowsProcessed prometheus.Counter
	rowsFailed    *prometheus.CounterVec
	batchesTotal  prometheus.Counter
	batchDuration prometheus.Histogram
}

// NewMetrics creates loader metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shelfwise_loader",
			Name:      "rows_processed_total",
			Help:      "Total catalog rows stored",
		}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfwise_loader",
			Name:      "rows_failed_total",
			Help:      "Total catalog rows that could not be stored",
		}, []string{"reason"}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shelfwise_loader",
			Name:      "batches_total",
			Help:      "Total batches sent to the store",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shelfwise_loader",
			Name:      "batch_duration_seconds",
			Help:      "Embed plus upsert duration per batch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(m.rowsProcessed, m.rowsFailed, m.batchesTotal, m.batchDuration)
	return m
}
