package valkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/shelfwise/internal/db"
)

// CreateIndex creates the catalog FT index.
func (s *Store) CreateIndex(ctx context.Context, def *db.VectorIndex) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	cmd := s.client.B().Arbitrary("FT.CREATE").Args(def.Args()...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return ftError(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index by name. valkey-search has no DD flag, so the
// indexed hashes survive and must be deleted separately.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.client.B().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return ftError(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(name).Build()
	err := s.client.Do(ctx, cmd).Error()
	if err == nil {
		return true, nil
	}
	if err = ftError(db.OpIndexInfo, err); errors.Is(err, db.ErrIndexNotFound) {
		return false, nil
	}
	return false, err
}
