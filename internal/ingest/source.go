package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ReadFile picks a reader by extension: .parquet files go through the columnar
// reader, everything else is treated as a pipe-delimited export.
func ReadFile(path string, logger *zap.Logger) (ReadResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return ReadParquet(path, logger)
	}

	f, err := os.Open(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f, logger)
}
