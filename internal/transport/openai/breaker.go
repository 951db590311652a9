package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
)

// TextGenerator is the contract the breaker wraps.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// BreakerConfig configures BreakingGenerator.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a half-open probe
	// ProbeUpstream makes HealthCheck call the wrapped generator's own probe while
	// the breaker is closed. Without it only the breaker state is reported.
	ProbeUpstream bool
}

// BreakingGenerator fails fast with domain.ErrUpstream while the model keeps failing.
// It never retries.
type BreakingGenerator struct {
	inner TextGenerator
	cb    *gobreaker.CircuitBreaker[string]
	probe bool
}

// NewBreakingGenerator wraps inner with a circuit breaker.
func NewBreakingGenerator(inner TextGenerator, cfg BreakerConfig, logger *zap.Logger) *BreakingGenerator {
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.LLMBreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.LLMBreakerState.WithLabelValues(name).Set(float64(to))
		},
		// Caller cancellation does not count as a model failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakingGenerator{inner: inner, cb: cb, probe: cfg.ProbeUpstream}
}

// Generate forwards to the wrapped generator unless the breaker is open.
func (b *BreakingGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.inner.Generate(ctx, system, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return out, err
}

// HealthCheck fails while the breaker is open. Otherwise it defers to the wrapped
// generator's probe when ProbeUpstream is set.
func (b *BreakingGenerator) HealthCheck(ctx context.Context) error {
	if state := b.cb.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit %s", domain.ErrUpstream, state)
	}
	if !b.probe {
		return nil
	}
	if hc, ok := b.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
