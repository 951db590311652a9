package ingest

import (
	"context"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// Writer is the store side of a load.
type Writer interface {
	EnsureSchema(ctx context.Context) error
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, books []book.Book) error
}

// Embedder vectorizes synopses. Implementations may also satisfy domain.BatchEmbedder.
type Embedder = domain.Embedder
