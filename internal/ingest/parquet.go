package ingest

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// parquetRow mirrors the export columns. Only id and titolo are required.
type parquetRow struct {
	ID       int64  `parquet:"id"`
	Title    string `parquet:"titolo"`
	Author   string `parquet:"autore,optional"`
	Year     *int64 `parquet:"anno,optional"`
	Synopsis string `parquet:"synopsis,optional"`
	Shelf    string `parquet:"collocazione,optional"`
}

// ReadParquet reads a parquet export from disk. Rows with a non-positive id or an
// empty title are logged and skipped.
func ReadParquet(path string, logger *zap.Logger) (ReadResult, error) {
	rows, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read parquet %s: %w", path, err)
	}

	res := ReadResult{Records: make([]Record, 0, len(rows))}
	for i, row := range rows {
		rec, ok := row.record()
		if !ok {
			logger.Warn("skipping invalid parquet row", zap.Int("row", i), zap.Int64("id", row.ID))
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (r parquetRow) record() (Record, bool) {
	title := strings.TrimSpace(r.Title)
	if r.ID <= 0 || title == "" {
		return Record{}, false
	}
	rec := Record{
		ID:       r.ID,
		Title:    title,
		Author:   strings.TrimSpace(r.Author),
		Synopsis: strings.TrimSpace(r.Synopsis),
		Shelf:    strings.TrimSpace(r.Shelf),
	}
	if r.Year != nil && *r.Year > 0 {
		rec.Year = int(*r.Year)
	}
	return rec, true
}
