package deepdive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
	"github.com/kailas-cloud/shelfwise/internal/logger"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
)

// Service explains why recommended books resemble a reference book.
type Service struct {
	catalog      Catalog
	gen          Generator
	system       string
	queryTimeout time.Duration
	llmTimeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSystemInstruction overrides the model's system instruction.
func WithSystemInstruction(s string) Option {
	return func(svc *Service) {
		if strings.TrimSpace(s) != "" {
			svc.system = s
		}
	}
}

// WithQueryTimeout bounds the synopsis lookup.
func WithQueryTimeout(d time.Duration) Option {
	return func(svc *Service) { svc.queryTimeout = d }
}

// WithLLMTimeout bounds the language-model call.
func WithLLMTimeout(d time.Duration) Option {
	return func(svc *Service) { svc.llmTimeout = d }
}

// New creates a deep-dive service.
func New(c Catalog, gen Generator, opts ...Option) *Service {
	s := &Service{catalog: c, gen: gen, system: DefaultSystemInstruction}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze looks up the reference synopsis, asks the model for one analysis per candidate
// and aligns the answer. A misaligned answer yields an empty Result and no error.
func (s *Service) Analyze(ctx context.Context, title string, cands []book.Candidate) (Result, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewTitleNotFound(title)
	}

	synopsis, err := s.referenceSynopsis(ctx, title)
	if err != nil {
		return nil, err
	}

	raw, err := s.generate(ctx, BuildPrompt(title, synopsis, cands))
	if err != nil {
		return nil, err
	}

	res, err := Align(raw, cands)
	if err != nil {
		var mm *MismatchError
		if errors.As(err, &mm) {
			logger.FromContext(ctx).Warn("deep dive alignment mismatch",
				zap.Error(ErrAlignmentMismatch),
				zap.Int("segments", mm.Segments),
				zap.Int("candidates", mm.Candidates),
			)
			metrics.AlignmentMismatchTotal.Inc()
			return Result{}, nil
		}
		return nil, err
	}
	return res, nil
}

// referenceSynopsis holds the store session only for the lookup, never across the model call.
func (s *Service) referenceSynopsis(ctx context.Context, title string) (string, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	sess, err := s.catalog.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open catalog: %w", err)
	}
	defer sess.Close()

	synopsis, err := sess.SynopsisByTitle(ctx, title)
	if err != nil {
		return "", fmt.Errorf("reference synopsis: %w", err)
	}
	return synopsis, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()
	}

	raw, err := s.gen.Generate(ctx, s.system, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return "", fmt.Errorf("generate analysis: %w", err)
	}
	return raw, nil
}
