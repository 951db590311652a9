// Package postgres wraps a pgx connection pool with pgvector type registration.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/kailas-cloud/shelfwise/internal/db"
)

// Config holds connection parameters for a PostgreSQL catalog.
type Config struct {
	DSN      string
	MaxConns int32
}

var _ db.Pinger = (*Pool)(nil)

// Pool is a pgvector-aware connection pool.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool parses the DSN and opens a pool. Connections register the vector type on connect.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Ping checks connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes all pooled connections.
func (p *Pool) Close() {
	p.pool.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (p *Pool) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Acquire checks out one connection. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpAcquire, Err: err}
	}
	return conn, nil
}

// Exec runs a statement on any pooled connection.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	return nil
}

// SendBatch runs queued statements in one round trip and checks every result.
func (p *Pool) SendBatch(ctx context.Context, b *pgx.Batch) error {
	br := p.pool.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("batch item %d: %w", i, err)}
		}
	}
	if err := br.Close(); err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	return nil
}
