// Package catalog maps the book catalog onto its two store backends.
package catalog

import (
	"time"

	"github.com/kailas-cloud/shelfwise/internal/metrics"
)

// track times one store operation; call the result with the named error on return.
func track(backend, op string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		metrics.ObserveCatalogQuery(backend, op, start, *errp)
	}
}
