package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shelfwise/internal/db"
	"github.com/kailas-cloud/shelfwise/internal/db/valkey"
	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// Hash field names of a book key.
const (
	fieldID       = "id"
	fieldTitle    = "title"
	fieldAuthor   = "author"
	fieldYear     = "year"
	fieldSynopsis = "synopsis"
	fieldShelf    = "shelf"
	fieldVector   = "vector"
)

// resetDelChunk caps the keys sent in one DEL during Reset.
const resetDelChunk = 500

// globEscaper quotes SCAN MATCH metacharacters in a literal key prefix.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

var returnFields = []string{fieldID, fieldTitle, fieldAuthor, fieldYear, fieldSynopsis, fieldShelf}

// kvStore is the consumer interface over the Valkey store (ISP).
type kvStore interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.VectorIndex) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Valkey keeps each book in a HASH at {prefix}book:{id} and an id→title HASH at
// {prefix}titles that serves title resolution and autocomplete.
type Valkey struct {
	store  kvStore
	prefix string
	dim    int
}

var (
	_ domain.Catalog       = (*Valkey)(nil)
	_ domain.CatalogWriter = (*Valkey)(nil)
)

// NewValkey creates the Valkey-backed catalog. dim is the embedding dimension.
func NewValkey(s kvStore, keyPrefix string, dim int) *Valkey {
	return &Valkey{store: s, prefix: keyPrefix, dim: dim}
}

func (v *Valkey) bookKey(id int64) string { return v.prefix + "book:" + strconv.FormatInt(id, 10) }
func (v *Valkey) titlesKey() string { return v.prefix + "titles" }
func (v *Valkey) indexName() string { return v.prefix + "books:idx" }

// Open returns a session over the multiplexed client. Nothing is checked out.
func (v *Valkey) Open(_ context.Context) (domain.CatalogSession, error) {
	return &valkeySession{c: v}, nil
}

type valkeySession struct {
	c      *Valkey
	closed bool
}

func (s *valkeySession) Close() { s.closed = true }

type titleEntry struct {
	id    int64
	title string
}

// titles loads the id→title index sorted by ascending id.
func (s *valkeySession) titles(ctx context.Context) ([]titleEntry, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}
	m, err := s.c.store.HGetAll(ctx, s.c.titlesKey())
	if err != nil {
		return nil, fmt.Errorf("%w: load titles: %w", domain.ErrStoreUnavailable, err)
	}
	out := make([]titleEntry, 0, len(m))
	for k, t := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, titleEntry{id: id, title: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

func (s *valkeySession) MatchTitle(ctx context.Context, query string) (_ []book.Match, err error) {
	defer track("valkey", "match_title")(&err)

	all, err := s.titles(ctx)
	if err != nil {
		return nil, err
	}
	needle := book.NormalizeTitle(query)

	var matches []book.Match
	for _, e := range all {
		if strings.Contains(book.NormalizeTitle(e.title), needle) {
			matches = append(matches, book.Match{ID: e.id, Title: e.title})
		}
	}

	if len(matches) == 1 {
		blob, err := s.c.store.HGet(ctx, s.c.bookKey(matches[0].ID), fieldVector)
		if err != nil {
			return nil, fmt.Errorf("%w: load vector %d: %w", domain.ErrStoreUnavailable, matches[0].ID, err)
		}
		vec, err := valkey.BytesToVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: decode vector %d: %w", domain.ErrStoreUnavailable, matches[0].ID, err)
		}
		matches[0].Embedding = vec
	}
	return matches, nil
}

func (s *valkeySession) Nearest(
	ctx context.Context, excludeID int64, vec []float32, k int,
) (_ []book.Book, err error) {
	defer track("valkey", "nearest")(&err)

	if s.closed {
		return nil, fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}
	if s.c.dim > 0 && len(vec) != s.c.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vec), s.c.dim)
	}

	res, err := s.c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    s.c.indexName(),
		VectorField:  fieldVector,
		Vector:       vec,
		K:            k + 1, // the source book is usually its own nearest neighbor
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn: %w", domain.ErrStoreUnavailable, err)
	}

	entries := make([]db.SearchEntry, 0, len(res.Entries))
	for _, e := range res.Entries {
		id, err := strconv.ParseInt(e.Fields[fieldID], 10, 64)
		if err != nil || id == excludeID {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Distance < entries[j].Distance })
	if len(entries) > k {
		entries = entries[:k]
	}

	books := make([]book.Book, 0, len(entries))
	for _, e := range entries {
		books = append(books, hashToBook(e.Fields))
	}
	return books, nil
}

func (s *valkeySession) SynopsisByTitle(ctx context.Context, title string) (_ string, err error) {
	defer track("valkey", "synopsis_by_title")(&err)

	all, err := s.titles(ctx)
	if err != nil {
		return "", err
	}
	want := book.NormalizeTitle(title)
	for _, e := range all {
		if book.NormalizeTitle(e.title) != want {
			continue
		}
		syn, err := s.c.store.HGet(ctx, s.c.bookKey(e.id), fieldSynopsis)
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: load synopsis %d: %w", domain.ErrStoreUnavailable, e.id, err)
		}
		return syn, nil
	}
	return "", domain.NewTitleNotFound(title)
}

func (s *valkeySession) SuggestTitles(ctx context.Context, query string, limit int) (_ []string, err error) {
	defer track("valkey", "suggest_titles")(&err)

	all, err := s.titles(ctx)
	if err != nil {
		return nil, err
	}
	needle := book.NormalizeTitle(query)

	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range all {
		if _, dup := seen[e.title]; dup {
			continue
		}
		if strings.Contains(book.NormalizeTitle(e.title), needle) {
			seen[e.title] = struct{}{}
			out = append(out, e.title)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EnsureSchema creates the vector index when it is missing.
func (v *Valkey) EnsureSchema(ctx context.Context) error {
	exists, err := v.store.IndexExists(ctx, v.indexName())
	if err != nil {
		return fmt.Errorf("%w: index info: %w", domain.ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	def := &db.VectorIndex{
		Name:        v.indexName(),
		Prefix:      v.prefix + "book:",
		Numeric:     []string{fieldID},
		VectorField: fieldVector,
		Dim:         v.dim,
		Distance:    db.DistanceCosine,
	}
	if err := v.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("%w: create index: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Reset drops the index, deletes every book hash under the prefix, then the title index.
func (v *Valkey) Reset(ctx context.Context) error {
	if err := v.store.DropIndex(ctx, v.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: drop index: %w", domain.ErrStoreUnavailable, err)
	}

	keys, err := v.store.Scan(ctx, globEscaper.Replace(v.prefix)+"book:*")
	if err != nil {
		return fmt.Errorf("%w: list books: %w", domain.ErrStoreUnavailable, err)
	}
	for start := 0; start < len(keys); start += resetDelChunk {
		end := min(start+resetDelChunk, len(keys))
		if err := v.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("%w: delete books: %w", domain.ErrStoreUnavailable, err)
		}
	}

	if err := v.store.Del(ctx, v.titlesKey()); err != nil {
		return fmt.Errorf("%w: drop titles: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert writes book hashes and their title entries in one pipeline.
func (v *Valkey) Upsert(ctx context.Context, books []book.Book) (err error) {
	defer track("valkey", "upsert")(&err)

	if len(books) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(books)+1)
	titles := make(map[string]string, len(books))
	for i := range books {
		b := &books[i]
		vec := b.Embedding()
		if v.dim > 0 && len(vec) != v.dim {
			return fmt.Errorf("%w: book %d has %d dimensions, want %d",
				domain.ErrVectorDimMismatch, b.ID(), len(vec), v.dim)
		}
		fields := map[string]string{
			fieldID:       strconv.FormatInt(b.ID(), 10),
			fieldTitle:    b.Title(),
			fieldAuthor:   b.Author(),
			fieldSynopsis: b.Synopsis(),
			fieldShelf:    b.ShelfLocation(),
			fieldVector:   valkey.VectorToBytes(vec),
		}
		if y, ok := b.Year(); ok {
			fields[fieldYear] = strconv.Itoa(y)
		}
		items = append(items, db.HashSetItem{Key: v.bookKey(b.ID()), Fields: fields})
		titles[strconv.FormatInt(b.ID(), 10)] = b.Title()
	}
	items = append(items, db.HashSetItem{Key: v.titlesKey(), Fields: titles})

	if err := v.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("%w: upsert: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func hashToBook(f map[string]string) book.Book {
	id, _ := strconv.ParseInt(f[fieldID], 10, 64)
	var year *int
	if y, err := strconv.Atoi(f[fieldYear]); err == nil {
		year = &y
	}
	return book.Reconstruct(id, f[fieldTitle], f[fieldAuthor], year, f[fieldSynopsis], f[fieldShelf], nil)
}
