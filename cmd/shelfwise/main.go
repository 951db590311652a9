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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/bootstrap"
	"github.com/kailas-cloud/shelfwise/internal/config"
	"github.com/kailas-cloud/shelfwise/internal/identity"
	logpkg "github.com/kailas-cloud/shelfwise/internal/logger"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
	chiTransport "github.com/kailas-cloud/shelfwise/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/shelfwise/internal/transport/openai"
	"github.com/kailas-cloud/shelfwise/internal/usecase/deepdive"
	healthuc "github.com/kailas-cloud/shelfwise/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/shelfwise/internal/usecase/recommend"
	suggestuc "github.com/kailas-cloud/shelfwise/internal/usecase/suggest"
	"github.com/kailas-cloud/shelfwise/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shelfwise API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("auth_provider", cfg.Auth.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()
	backend, err := bootstrap.OpenBackend(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Catalog store unavailable", zap.Error(err))
	}
	defer backend.Close()

	verifier, err := bootstrap.NewVerifier(cfg.Auth)
	if err != nil {
		logger.Fatal("Failed to create identity verifier", zap.Error(err))
	}
	whitelist := identity.NewWhitelist(cfg.Auth.AuthorizedEmails)
	if whitelist.Len() == 0 {
		logger.Warn("Authorized email list is empty: every authenticated request will be rejected")
	}

	// Language model: chat completions, optionally behind a circuit breaker.
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	// The health probe sees the breaker when there is one, so an open circuit
	// reports degraded without another upstream call.
	var (
		textGen    openaiTransport.TextGenerator = generator
		llmChecker healthuc.LLMChecker
	)
	switch {
	case cfg.LLM.Breaker.Enabled:
		breaker := openaiTransport.NewBreakingGenerator(generator, openaiTransport.BreakerConfig{
			Name:          "llm",
			MaxFailures:   cfg.LLM.Breaker.MaxFailures,
			OpenTimeout:   time.Duration(cfg.LLM.Breaker.OpenTimeoutSec) * time.Second,
			ProbeUpstream: cfg.LLM.HealthCheck,
		}, logger)
		textGen, llmChecker = breaker, breaker
	case cfg.LLM.HealthCheck:
		llmChecker = generator
	}

	queryTimeout := time.Duration(cfg.Database.QueryTimeoutSec) * time.Second

	recommendSvc := recommenduc.New(backend.Catalog,
		recommenduc.WithK(cfg.Recommend.Neighbors),
		recommenduc.WithQueryTimeout(queryTimeout),
	)
	deepDiveSvc := deepdive.New(backend.Catalog, textGen,
		deepdive.WithSystemInstruction(cfg.LLM.SystemInstruction),
		deepdive.WithQueryTimeout(queryTimeout),
		deepdive.WithLLMTimeout(time.Duration(cfg.LLM.TimeoutSec)*time.Second),
	)
	suggestSvc := suggestuc.New(backend.Catalog, queryTimeout)

	healthSvc := healthuc.New(backend.Pinger, llmChecker, queryTimeout)

	server := chiTransport.NewServer(recommendSvc, deepDiveSvc, suggestSvc, healthSvc, logger)

	allowOrigin, err := bootstrap.OriginMatcher(cfg.CORS)
	if err != nil {
		logger.Fatal("Invalid CORS configuration", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware())

	var suggestLimit func(http.Handler) http.Handler
	if n := cfg.HTTP.SuggestLimit(); n > 0 {
		suggestLimit = httprate.LimitByIP(n, time.Minute)
	}
	server.Routes(r, chiTransport.BearerGate(verifier, whitelist, logger), suggestLimit)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
