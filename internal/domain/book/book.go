// Package book holds the immutable catalog record and the lightweight views of it
// that flow between the resolver, similarity search and the deep-dive pipeline.
package book

import (
	"fmt"
	"strings"
)

// Book is a catalog record (immutable value object).
type Book struct {
	id        int64
	title     string
	author    string
	year      int
	hasYear   bool
	synopsis  string
	shelf     string
	embedding []float32
}

// New validates and creates a Book. year <= 0 means the year is unknown.
// dim, when positive, is the catalog embedding dimension the vector must match.
func New(
	id int64, title, author string, year int, synopsis, shelf string,
	embedding []float32, dim int,
) (Book, error) {
	if id <= 0 {
		return Book{}, fmt.Errorf("book id must be positive, got %d", id)
	}
	if strings.TrimSpace(title) == "" {
		return Book{}, fmt.Errorf("book %d: title is required", id)
	}
	if dim > 0 && len(embedding) > 0 && len(embedding) != dim {
		return Book{}, fmt.Errorf("book %d: embedding has %d dimensions, want %d", id, len(embedding), dim)
	}

	return Book{
		id:        id,
		title:     title,
		author:    author,
		year:      year,
		hasYear:   year > 0,
		synopsis:  synopsis,
		shelf:     shelf,
		embedding: cloneVector(embedding),
	}, nil
}

// Reconstruct creates a Book without validation (storage hydration).
func Reconstruct(
	id int64, title, author string, year *int, synopsis, shelf string, embedding []float32,
) Book {
	b := Book{id: id, title: title, author: author, synopsis: synopsis, shelf: shelf, embedding: embedding}
	if year != nil {
		b.year = *year
		b.hasYear = true
	}
	return b
}

// ID returns the stable catalog identifier.
func (b *Book) ID() int64 { return b.id }

// Title returns the title as stored.
func (b *Book) Title() string { return b.title }

// Author returns the author.
func (b *Book) Author() string { return b.author }

// Year returns the publication year and whether it is known.
func (b *Book) Year() (int, bool) { return b.year, b.hasYear }

// Synopsis returns the synopsis, possibly empty.
func (b *Book) Synopsis() string { return b.synopsis }

// ShelfLocation returns the library shelf mark.
func (b *Book) ShelfLocation() string { return b.shelf }

// Embedding returns a copy of the embedding vector.
func (b *Book) Embedding() []float32 { return cloneVector(b.embedding) }

// Match is a title-resolution hit: enough to run a similarity search.
type Match struct {
	ID        int64
	Title     string
	Embedding []float32
}

// Candidate is a recommended book handed to the deep-dive pipeline.
type Candidate struct {
	Title    string
	Synopsis string
}

// NormalizeTitle trims and lower-cases a title for case-insensitive comparison.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
