// Package valkey implements the key-value catalog store on Valkey with the
// valkey-search module, via rueidis.
package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shelfwise/internal/db"
)

var _ db.VectorStore = (*Store)(nil)

// readyPollInterval spaces PING attempts while waiting for the server.
const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters for a Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
}

// Store is the catalog's view of one Valkey deployment: book hashes, the FT index
// over them and KNN queries. All commands share the client's auto-pipelining.
type Store struct {
	client rueidis.Client
}

// NewStore dials Valkey. Client-side caching stays off because every read is a
// one-shot lookup, and RESP2 keeps FT.SEARCH replies as flat arrays.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("valkey: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings until the server answers, ctx ends or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("valkey not ready after %s: %w", timeout, err)
		case <-time.After(readyPollInterval):
		}
	}
}
