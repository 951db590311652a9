// Package db holds the storage contracts and value types shared by the catalog backends.
package db

import "context"

// Pinger checks connectivity. Both backends implement it for the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one key and its fields for a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore reads and writes book hashes.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// IndexManager owns the lifecycle of the catalog FT index.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *VectorIndex) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN queries against the FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// VectorStore is everything the key-value catalog needs from its backend.
type VectorStore interface {
	Pinger
	HashStore
	IndexManager
	Searcher
}
