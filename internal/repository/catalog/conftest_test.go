package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/shelfwise/internal/db"
)

// mockStore implements kvStore for tests.
type mockStore struct {
	mu        sync.Mutex
	hashes    map[string]map[string]string
	knn       *db.SearchResult
	knnErr    error
	hgetAllFn func(key string) (map[string]string, error)
	lastKNN   *db.KNNQuery
	created   *db.VectorIndex
	indexUp   bool
	dropped   bool
	deleted   []string
	scanned   []string
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		h, ok := m.hashes[it.Key]
		if !ok {
			h = make(map[string]string)
			m.hashes[it.Key] = h
		}
		for k, v := range it.Fields {
			h[k] = v
		}
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

// Scan supports the trailing-star patterns Reset issues.
func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanned = append(m.scanned, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.VectorIndex) error {
	m.created = def
	m.indexUp = true
	return nil
}

func (m *mockStore) DropIndex(_ context.Context, _ string) error {
	if !m.indexUp {
		return db.ErrIndexNotFound
	}
	m.indexUp = false
	m.dropped = true
	return nil
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexUp, nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	if m.knn == nil {
		return &db.SearchResult{}, nil
	}
	return m.knn, nil
}

// fakeRows is a minimal in-memory pgx.Rows.
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error { return scanInto(r.data[r.pos-1], dest) }

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

func scanInto(vals, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = vals[i].(int64)
		case *string:
			*p = vals[i].(string)
		case *pgvector.Vector:
			*p = pgvector.NewVector(vals[i].([]float32))
		case **int32:
			if vals[i] == nil {
				*p = nil
			} else {
				v := vals[i].(int32)
				*p = &v
			}
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

type queryCall struct {
	sql  string
	args []any
}

// fakeConn implements pgConn.
type fakeConn struct {
	rows     *fakeRows
	row      fakeRow
	queryErr error
	calls    []queryCall
	released int
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.calls = append(c.calls, queryCall{sql: sql, args: args})
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.rows == nil {
		return &fakeRows{}, nil
	}
	return c.rows, nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.calls = append(c.calls, queryCall{sql: sql, args: args})
	return c.row
}

func (c *fakeConn) Release() { c.released++ }

// fakePool implements pgPool.
type fakePool struct {
	execSQL []string
	batches []*pgx.Batch
	err     error
}

func (p *fakePool) Exec(_ context.Context, sql string, _ ...any) error {
	p.execSQL = append(p.execSQL, sql)
	return p.err
}

func (p *fakePool) SendBatch(_ context.Context, b *pgx.Batch) error {
	p.batches = append(p.batches, b)
	return p.err
}

func newTestPostgres(conn *fakeConn, pool *fakePool, dim int) *Postgres {
	return &Postgres{
		pool: pool,
		acquire: func(context.Context) (pgConn, error) {
			return conn, nil
		},
		dim: dim,
	}
}
