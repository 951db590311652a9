package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/shelfwise/internal/db/postgres"
	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

const (
	matchTitleSQL = `SELECT id, titolo, embedding FROM books WHERE TRIM(titolo) ILIKE $1`

	nearestSQL = `SELECT id, titolo, COALESCE(autore, ''), anno, COALESCE(synopsis, ''), COALESCE(collocazione, '')
FROM books
WHERE id <> $1
ORDER BY embedding <=> $2
LIMIT $3`

	synopsisSQL = `SELECT COALESCE(synopsis, '') FROM books
WHERE LOWER(TRIM(titolo)) = LOWER(TRIM($1))
ORDER BY id
LIMIT 1`

	suggestSQL = `SELECT DISTINCT titolo FROM books WHERE TRIM(titolo) ILIKE $1 ORDER BY titolo LIMIT $2`

	truncateSQL = `TRUNCATE books RESTART IDENTITY CASCADE`

	upsertSQL = `INSERT INTO books (id, titolo, autore, anno, synopsis, collocazione, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	titolo = EXCLUDED.titolo,
	autore = EXCLUDED.autore,
	anno = EXCLUDED.anno,
	synopsis = EXCLUDED.synopsis,
	collocazione = EXCLUDED.collocazione,
	embedding = EXCLUDED.embedding`
)

// pgConn is the slice of *pgxpool.Conn a session needs.
type pgConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// pgPool is the pool-level surface used by the loader.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) error
	SendBatch(ctx context.Context, b *pgx.Batch) error
}

// Postgres serves the catalog from a pgvector-enabled books table.
type Postgres struct {
	pool    pgPool
	acquire func(ctx context.Context) (pgConn, error)
	dim     int
}

var (
	_ domain.Catalog       = (*Postgres)(nil)
	_ domain.CatalogWriter = (*Postgres)(nil)
)

// NewPostgres creates the PostgreSQL-backed catalog. dim is the embedding dimension.
func NewPostgres(p *postgres.Pool, dim int) *Postgres {
	return &Postgres{
		pool: p,
		acquire: func(ctx context.Context) (pgConn, error) {
			c, err := p.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		dim: dim,
	}
}

// Open checks out one pooled connection for the session.
func (p *Postgres) Open(ctx context.Context) (domain.CatalogSession, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return &pgSession{conn: conn, dim: p.dim}, nil
}

type pgSession struct {
	conn pgConn
	dim  int
}

// Close returns the connection to the pool once.
func (s *pgSession) Close() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}

func (s *pgSession) active() error {
	if s.conn == nil {
		return fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}
	return nil
}

func (s *pgSession) MatchTitle(ctx context.Context, query string) (_ []book.Match, err error) {
	defer track("postgres", "match_title")(&err)

	if err := s.active(); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, matchTitleSQL, containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("%w: match title: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var matches []book.Match
	for rows.Next() {
		var (
			m   book.Match
			vec pgvector.Vector
		)
		if err := rows.Scan(&m.ID, &m.Title, &vec); err != nil {
			return nil, fmt.Errorf("%w: scan match: %w", domain.ErrStoreUnavailable, err)
		}
		m.Embedding = vec.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: match rows: %w", domain.ErrStoreUnavailable, err)
	}
	return matches, nil
}

func (s *pgSession) Nearest(
	ctx context.Context, excludeID int64, vec []float32, k int,
) (_ []book.Book, err error) {
	defer track("postgres", "nearest")(&err)

	if err := s.active(); err != nil {
		return nil, err
	}
	if s.dim > 0 && len(vec) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vec), s.dim)
	}

	rows, err := s.conn.Query(ctx, nearestSQL, excludeID, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	books := make([]book.Book, 0, k)
	for rows.Next() {
		var (
			id                             int64
			title, author, synopsis, shelf string
			year                           *int32
		)
		if err := rows.Scan(&id, &title, &author, &year, &synopsis, &shelf); err != nil {
			return nil, fmt.Errorf("%w: scan book: %w", domain.ErrStoreUnavailable, err)
		}
		var y *int
		if year != nil {
			v := int(*year)
			y = &v
		}
		books = append(books, book.Reconstruct(id, title, author, y, synopsis, shelf, nil))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: nearest rows: %w", domain.ErrStoreUnavailable, err)
	}
	return books, nil
}

func (s *pgSession) SynopsisByTitle(ctx context.Context, title string) (_ string, err error) {
	defer track("postgres", "synopsis_by_title")(&err)

	if err := s.active(); err != nil {
		return "", err
	}
	var synopsis string
	if err := s.conn.QueryRow(ctx, synopsisSQL, title).Scan(&synopsis); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NewTitleNotFound(title)
		}
		return "", fmt.Errorf("%w: synopsis: %w", domain.ErrStoreUnavailable, err)
	}
	return synopsis, nil
}

func (s *pgSession) SuggestTitles(ctx context.Context, query string, limit int) (_ []string, err error) {
	defer track("postgres", "suggest_titles")(&err)

	if err := s.active(); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, suggestSQL, containsPattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: suggest: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%w: scan title: %w", domain.ErrStoreUnavailable, err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: suggest rows: %w", domain.ErrStoreUnavailable, err)
	}
	return titles, nil
}

// EnsureSchema is a no-op: the books table and vector extension are provisioned externally.
func (p *Postgres) EnsureSchema(_ context.Context) error { return nil }

// Reset empties the books table and restarts its identity.
func (p *Postgres) Reset(ctx context.Context) error {
	if err := p.pool.Exec(ctx, truncateSQL); err != nil {
		return fmt.Errorf("%w: truncate: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert inserts or replaces books in a single batch.
func (p *Postgres) Upsert(ctx context.Context, books []book.Book) (err error) {
	defer track("postgres", "upsert")(&err)

	if len(books) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range books {
		b := &books[i]
		vec := b.Embedding()
		if p.dim > 0 && len(vec) != p.dim {
			return fmt.Errorf("%w: book %d has %d dimensions, want %d",
				domain.ErrVectorDimMismatch, b.ID(), len(vec), p.dim)
		}
		var year *int32
		if y, ok := b.Year(); ok {
			v := int32(y) //nolint:gosec // publication years fit in int32
			year = &v
		}
		batch.Queue(upsertSQL,
			b.ID(), b.Title(), b.Author(), year, b.Synopsis(), b.ShelfLocation(), pgvector.NewVector(vec))
	}

	if err := p.pool.SendBatch(ctx, batch); err != nil {
		return fmt.Errorf("%w: upsert: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE substring pattern with metacharacters escaped.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
