package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// HNSW defaults used when VectorIndex leaves them unset.
const (
	DefaultHNSWM           = 16
	DefaultHNSWEFConstruct = 200
)

// VectorIndex is the FT index over book hashes: every hash under Prefix, a few NUMERIC
// fields and one FLOAT32 HNSW vector field.
type VectorIndex struct {
	Name    string
	Prefix  string
	Numeric []string

	VectorField string
	Dim         int
	Distance    DistanceMetric // default COSINE
	M           int            // default 16
	EFConstruct int            // default 200
}

// Validate checks that the index can be created.
func (idx *VectorIndex) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("invalid index name %q", idx.Name)
	}
	if idx.VectorField == "" {
		return errors.New("vector field is required")
	}
	if idx.Dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", idx.Dim)
	}
	seen := map[string]bool{idx.VectorField: true}
	for _, f := range idx.Numeric {
		if f == "" || seen[f] {
			return fmt.Errorf("invalid or duplicate field %q", f)
		}
		seen[f] = true
	}
	return nil
}

// Args renders the FT.CREATE arguments (without the command name).
func (idx *VectorIndex) Args() []string {
	args := []string{idx.Name, "ON", "HASH"}
	if idx.Prefix != "" {
		args = append(args, "PREFIX", "1", idx.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, f := range idx.Numeric {
		args = append(args, f, "NUMERIC")
	}

	distance := idx.Distance
	if distance == "" {
		distance = DistanceCosine
	}
	m, ef := idx.M, idx.EFConstruct
	if m <= 0 {
		m = DefaultHNSWM
	}
	if ef <= 0 {
		ef = DefaultHNSWEFConstruct
	}
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(idx.Dim),
		"DISTANCE_METRIC", string(distance),
		"M", strconv.Itoa(m),
		"EF_CONSTRUCTION", strconv.Itoa(ef),
	}
	args = append(args, idx.VectorField, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}

// String returns the FT.CREATE command for logs.
func (idx *VectorIndex) String() string {
	return "FT.CREATE " + strings.Join(idx.Args(), " ")
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
