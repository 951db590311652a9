package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ReadResult is the outcome of reading an export: the good rows and how many were skipped.
type ReadResult struct {
	Records []Record
	Skipped int
}

// ReadCSV reads a pipe-delimited, double-quoted export with a header row.
// Malformed rows are logged and skipped; a missing required column fails the read.
func ReadCSV(r io.Reader, logger *zap.Logger) (ReadResult, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ReadResult{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return ReadResult{}, err
	}

	var res ReadResult
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.Warn("skipping malformed csv row", zap.Int("line", pe.Line), zap.Error(err))
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if len(row) != len(header) {
			logger.Warn("skipping csv row with wrong field count",
				zap.Int("line", line), zap.Int("fields", len(row)), zap.Int("want", len(header)))
			res.Skipped++
			continue
		}
		rec, err := cols.record(row)
		if err != nil {
			logger.Warn("skipping invalid csv row", zap.Int("line", line), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}
	return cols, nil
}

func (c columnIndex) field(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) record(row []string) (Record, error) {
	id, err := strconv.ParseInt(c.field(row, colID), 10, 64)
	if err != nil || id <= 0 {
		return Record{}, fmt.Errorf("invalid id %q", c.field(row, colID))
	}
	title := c.field(row, colTitle)
	if title == "" {
		return Record{}, fmt.Errorf("book %d: empty title", id)
	}
	return Record{
		ID:       id,
		Title:    title,
		Author:   c.field(row, colAuthor),
		Year:     parseYear(c.field(row, colYear)),
		Synopsis: c.field(row, colSynopsis),
		Shelf:    c.field(row, colShelf),
	}, nil
}
