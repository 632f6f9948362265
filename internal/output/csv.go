// Package output persists pipeline results to the processed-data directory:
// one CSV per table, optional parquet mirrors, and a JSON run report. Output
// is deterministic for a given input so repeated runs produce identical
// files.
package output

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hospitalmart/internal/table"
)

// WriteCSV writes one table as <dir>/<table name>.csv. Missing values render
// as empty cells, dates as YYYY-MM-DD, timestamps as RFC 3339 UTC.
func WriteCSV(dir string, t *table.Table) (string, error) {
	path := filepath.Join(dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = v.Render(t.Columns[i].Type)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	slog.Info("wrote csv", "table", t.Name, "rows", t.NumRows(), "path", path)
	return path, nil
}
