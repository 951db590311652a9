package deepdive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// ErrAlignmentMismatch marks a response whose segment count differs from the candidate count.
var ErrAlignmentMismatch = errors.New("analysis count does not match recommendation count")

// Result maps candidate title to its analysis. Duplicate titles collapse to the last one.
type Result map[string]string

// MismatchError carries both counts of a misaligned response.
type MismatchError struct {
	Segments   int
	Candidates int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %d segments for %d candidates", ErrAlignmentMismatch, e.Segments, e.Candidates)
}

func (e *MismatchError) Unwrap() error { return ErrAlignmentMismatch }

// Align splits raw on Delimiter and zips the trimmed segments onto candidate titles by position.
func Align(raw string, cands []book.Candidate) (Result, error) {
	segments := strings.Split(raw, Delimiter)
	if len(segments) != len(cands) {
		return Result{}, &MismatchError{Segments: len(segments), Candidates: len(cands)}
	}

	out := make(Result, len(cands))
	for i, c := range cands {
		out[c.Title] = strings.TrimSpace(segments[i])
	}
	return out, nil
}
