package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 64
)

// Ingester embeds records and upserts them with a pool of workers.
// Records → channel(batch) → N workers → embed → Upsert.
type Ingester struct {
	writer    Writer
	embedder  Embedder
	dim       int
	workers   int
	batchSize int
	metrics   *Metrics
	logger    *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithBatchSize sets how many records share one embedding call and one upsert.
func WithBatchSize(n int) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithMetrics enables Prometheus progress metrics.
func WithMetrics(m *Metrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an ingester. dim is the catalog embedding dimension.
func New(w Writer, e Embedder, dim int, opts ...Option) *Ingester {
	ing := &Ingester{
		writer:    w,
		embedder:  e,
		dim:       dim,
		workers:   defaultWorkers,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// Result summarizes a load.
type Result struct {
	Processed int64
	Failed    int64
	Duration  time.Duration
}

// Run loads records. With truncate set the store is emptied first.
// Batch failures are logged and counted; only schema and reset errors abort the run.
func (ing *Ingester) Run(ctx context.Context, records []Record, truncate bool) (Result, error) {
	if truncate {
		if err := ing.writer.Reset(ctx); err != nil {
			return Result{}, fmt.Errorf("reset catalog: %w", err)
		}
		ing.logger.Info("catalog truncated")
	}
	if err := ing.writer.EnsureSchema(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure schema: %w", err)
	}

	batches := make(chan []Record, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed atomic.Int64

	start := time.Now()

	for w := 0; w < ing.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				ing.processBatch(ctx, workerID, batch, &processed, &failed)
			}
		}(w)
	}

	go func() {
		defer close(batches)
		for lo := 0; lo < len(records); lo += ing.batchSize {
			hi := min(lo+ing.batchSize, len(records))
			select {
			case batches <- records[lo:hi]:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	res := Result{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Duration:  time.Since(start),
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("load interrupted: %w", err)
	}
	return res, nil
}

func (ing *Ingester) processBatch(
	ctx context.Context,
	workerID int,
	batch []Record,
	processed, failed *atomic.Int64,
) {
	start := time.Now()
	defer func() {
		if ing.metrics != nil {
			ing.metrics.batchesTotal.Inc()
			ing.metrics.batchDuration.Observe(time.Since(start).Seconds())
		}
	}()

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	emb, err := domain.EmbedAll(ctx, ing.embedder, texts)
	if err != nil {
		ing.fail(workerID, batch[0].ID, len(batch), "embed_error", err, failed)
		return
	}

	books := make([]book.Book, 0, len(batch))
	for i := range batch {
		b, err := batch[i].Book(emb.Embeddings[i], ing.dim)
		if err != nil {
			ing.logger.Warn("skipping invalid book", zap.Int("worker", workerID), zap.Error(err))
			ing.countFailed("invalid", 1, failed)
			continue
		}
		books = append(books, b)
	}
	if len(books) == 0 {
		return
	}

	if err := ing.writer.Upsert(ctx, books); err != nil {
		reason := "upsert_error"
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			reason = "dimension_mismatch"
		}
		ing.fail(workerID, books[0].ID(), len(books), reason, err, failed)
		return
	}

	total := processed.Add(int64(len(books)))
	if ing.metrics != nil {
		ing.metrics.rowsProcessed.Add(float64(len(books)))
	}
	if total%1000 < int64(len(books)) {
		ing.logger.Info("load progress", zap.Int64("processed", total), zap.Int64("failed", failed.Load()))
	}
}

func (ing *Ingester) fail(workerID int, firstID int64, n int, reason string, err error, failed *atomic.Int64) {
	ing.logger.Error("batch failed",
		zap.Int("worker", workerID),
		zap.Int64("first_id", firstID),
		zap.Int("size", n),
		zap.String("reason", reason),
		zap.Error(err),
	)
	ing.countFailed(reason, n, failed)
}

func (ing *Ingester) countFailed(reason string, n int, failed *atomic.Int64) {
	failed.Add(int64(n))
	if ing.metrics != nil {
		ing.metrics.rowsFailed.WithLabelValues(reason).Add(float64(n))
	}
}
