package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// DefaultK is the number of similar books returned for a resolved title.
const DefaultK = 5

// Outcome is either a list of similar books or a set of titles to choose from.
type Outcome struct {
	Books   []book.Book
	Options []string
}

// Ambiguous reports whether the caller must pick one of Options.
func (o Outcome) Ambiguous() bool { return len(o.Options) > 1 }

// Service resolves titles and finds similar books.
type Service struct {
	catalog      Catalog
	k            int
	queryTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithQueryTimeout bounds each store session. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

// WithK overrides the number of similar books returned.
func WithK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// New creates a recommendation service.
func New(c Catalog, opts ...Option) *Service {
	s := &Service{catalog: c, k: DefaultK}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recommend resolves the title and, when it is unique, returns its nearest neighbors.
// Resolution and search share one store session.
func (s *Service) Recommend(ctx context.Context, title string) (Outcome, error) {
	query := strings.TrimSpace(title)
	if query == "" {
		return Outcome{}, domain.NewTitleNotFound(title)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	sess, err := s.catalog.Open(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("open catalog: %w", err)
	}
	defer sess.Close()

	matches, err := s.resolve(ctx, sess, query)
	if err != nil {
		return Outcome{}, err
	}

	switch len(matches) {
	case 0:
		return Outcome{}, domain.NewTitleNotFound(title)
	case 1:
		books, err := s.similar(ctx, sess, matches[0])
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Books: books}, nil
	default:
		options := make([]string, len(matches))
		for i, m := range matches {
			options[i] = m.Title
		}
		return Outcome{Options: options}, nil
	}
}

func (s *Service) resolve(ctx context.Context, sess domain.CatalogSession, query string) ([]book.Match, error) {
	matches, err := sess.MatchTitle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("match title: %w", err)
	}
	return matches, nil
}

func (s *Service) similar(ctx context.Context, sess domain.CatalogSession, m book.Match) ([]book.Book, error) {
	books, err := sess.Nearest(ctx, m.ID, m.Embedding, s.k)
	if err != nil {
		return nil, fmt.Errorf("nearest to %d: %w", m.ID, err)
	}
	return books, nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
