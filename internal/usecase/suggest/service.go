package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxSuggestions caps the autocomplete list.
const MaxSuggestions = 10

// Service serves title autocomplete.
type Service struct {
	catalog      Catalog
	queryTimeout time.Duration
}

// New creates an autocomplete service. queryTimeout of zero disables the bound.
func New(c Catalog, queryTimeout time.Duration) *Service {
	return &Service{catalog: c, queryTimeout: queryTimeout}
}

// Suggest returns up to MaxSuggestions distinct titles containing the query, sorted.
// A blank query returns an empty list without touching the store.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []string{}, nil
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	sess, err := s.catalog.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer sess.Close()

	titles, err := sess.SuggestTitles(ctx, q, MaxSuggestions)
	if err != nil {
		return nil, fmt.Errorf("suggest titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}
