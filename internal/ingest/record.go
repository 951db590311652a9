// Package ingest reads catalog exports and bulk-loads them, with embeddings, into the store.
package ingest

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// Catalog export columns.
const (
	colID       = "id"
	colTitle    = "titolo"
	colAuthor   = "autore"
	colYear     = "anno"
	colSynopsis = "synopsis"
	colShelf    = "collocazione"
)

var requiredColumns = []string{colID, colTitle}

// Record is one catalog row before embedding.
type Record struct {
	ID       int64
	Title    string
	Author   string
	Year     int // 0 when unknown
	Synopsis string
	Shelf    string
}

// EmbeddingText is what the encoder sees for this record. Rows without a synopsis fall
// back to the title so that every book gets a vector.
func (r Record) EmbeddingText() string {
	if s := strings.TrimSpace(r.Synopsis); s != "" {
		return s
	}
	return r.Title
}

// Book validates the record and attaches its embedding.
func (r Record) Book(embedding []float32, dim int) (book.Book, error) {
	return book.New(r.ID, r.Title, r.Author, r.Year, r.Synopsis, r.Shelf, embedding, dim)
}

// parseYear accepts "1958", " 1958 " and "1958.0". Anything else is an unknown year.
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if y, err := strconv.Atoi(s); err == nil && y > 0 {
		return y
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f == float64(int(f)) {
		return int(f)
	}
	return 0
}
