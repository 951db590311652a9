package domain

import (
	"context"

	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// Catalog opens request-scoped sessions against the book store.
type Catalog interface {
	Open(ctx context.Context) (CatalogSession, error)
}

// CatalogSession is bound to one store connection for the lifetime of a request.
// Close is idempotent and must be called on every path.
type CatalogSession interface {
	// MatchTitle returns books whose trimmed title contains the query, case-insensitively,
	// in store order. Embedding is guaranteed only when exactly one match is returned.
	MatchTitle(ctx context.Context, query string) ([]book.Match, error)
	// Nearest returns up to k books closest to vec, excluding excludeID, closest first.
	Nearest(ctx context.Context, excludeID int64, vec []float32, k int) ([]book.Book, error)
	// SynopsisByTitle looks a title up exactly (trimmed, case-insensitive).
	SynopsisByTitle(ctx context.Context, title string) (string, error)
	// SuggestTitles returns up to limit distinct matching titles, sorted.
	SuggestTitles(ctx context.Context, query string, limit int) ([]string, error)
	Close()
}

// CatalogWriter bulk-loads books. Used by the catalog loader only.
type CatalogWriter interface {
	EnsureSchema(ctx context.Context) error
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, books []book.Book) error
}
