package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated signals a missing, malformed or unverifiable identity token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden signals a verified identity that is not on the whitelist.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest signals a request missing required fields.
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound signals a title that could not be resolved in the catalog.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable signals a catalog store connection or query failure.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
	// ErrUpstream signals a failed model provider call (transport, quota, open breaker, bad payload).
	ErrUpstream = errors.New("language model upstream error")
	// ErrVectorDimMismatch signals a query vector whose length differs from the catalog dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// TitleNotFoundError wraps ErrNotFound with the title that was searched.
type TitleNotFoundError struct {
	Title string
}

func (e *TitleNotFoundError) Error() string {
	return fmt.Sprintf("no book found matching %q", e.Title)
}

func (e *TitleNotFoundError) Unwrap() error { return ErrNotFound }

// NewTitleNotFound creates a not-found error echoing the searched title.
func NewTitleNotFound(title string) error {
	return &TitleNotFoundError{Title: title}
}
