package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/bootstrap"
	"github.com/kailas-cloud/shelfwise/internal/ingest"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
	openaiTransport "github.com/kailas-cloud/shelfwise/internal/transport/openai"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Embed and upsert a catalog export",
	Long: `Load reads a pipe-delimited export (id|titolo|autore|anno|synopsis|collocazione)
or a parquet file with the same columns, embeds each synopsis and upserts the
books. With --truncate the store is emptied first.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringP("file", "f", "", "catalog export (.csv or .parquet)")
	loadCmd.Flags().Bool("truncate", false, "empty the catalog before loading")
	loadCmd.Flags().Int("workers", 4, "concurrent embed+upsert workers")
	loadCmd.Flags().Int("batch-size", 64, "records per embedding call")
	loadCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while loading (e.g. :9091)")
	_ = loadCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	truncate, _ := cmd.Flags().GetBool("truncate")
	workers, _ := cmd.Flags().GetInt("workers")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	metrics.RegisterEmbeddingMetrics()
	loaderMetrics := ingest.NewMetrics(prometheus.DefaultRegisterer)
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	read, err := ingest.ReadFile(path, logger)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	logger.Info("Catalog export read",
		zap.String("file", path),
		zap.Int("records", len(read.Records)),
		zap.Int("skipped", read.Skipped),
	)

	backend, err := bootstrap.OpenBackend(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer backend.Close()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	ing := ingest.New(backend.Writer, embedder, cfg.Database.Dimensions,
		ingest.WithWorkers(workers),
		ingest.WithBatchSize(batchSize),
		ingest.WithMetrics(loaderMetrics),
		ingest.WithLogger(logger),
	)

	res, err := ing.Run(ctx, read.Records, truncate)
	logger.Info("Catalog load finished",
		zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed),
		zap.Int("skipped", read.Skipped),
		zap.Duration("duration", res.Duration),
	)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", res.Failed, len(read.Records))
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving loader metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()
	return srv
}
