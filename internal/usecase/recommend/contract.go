package recommend

import (
	"context"

	"github.com/kailas-cloud/shelfwise/internal/domain"
)

// Catalog opens request-scoped store sessions.
type Catalog interface {
	Open(ctx context.Context) (domain.CatalogSession, error)
}
