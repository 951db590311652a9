package deepdive

import (
	"context"

	"github.com/kailas-cloud/shelfwise/internal/domain"
)

// Catalog opens request-scoped store sessions.
type Catalog interface {
	Open(ctx context.Context) (domain.CatalogSession, error)
}

// Generator produces free text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
