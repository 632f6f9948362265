package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"hospitalmart/internal/table"
)

// parquetSchema builds a parquet schema from a table's columns. Numeric
// columns become optional doubles; everything else becomes an optional
// string carrying the column's canonical rendering.
func parquetSchema(t *table.Table) *parquet.Schema {
	group := parquet.Group{}
	for _, col := range t.Columns {
		switch col.Type {
		case table.FieldNumeric:
			group[col.Name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		default:
			group[col.Name] = parquet.Optional(parquet.String())
		}
	}
	return parquet.NewSchema(t.Name, group)
}

// WriteParquet writes one table as <dir>/<table name>.parquet. Missing
// values are stored as nulls.
func WriteParquet(dir string, t *table.Table) (string, error) {
	path := filepath.Join(dir, t.Name+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[map[string]any](f,
		parquetSchema(t),
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
	)

	rows := make([]map[string]any, 0, 64)
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, v := range row {
			if !v.Valid {
				continue
			}
			col := t.Columns[i]
			if col.Type == table.FieldNumeric {
				rec[col.Name] = v.Num
			} else {
				rec[col.Name] = v.Render(col.Type)
			}
		}
		rows = append(rows, rec)

		if len(rows) == cap(rows) {
			if _, err := w.Write(rows); err != nil {
				return "", fmt.Errorf("write rows: %w", err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return "", fmt.Errorf("write rows: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	slog.Info("wrote parquet", "table", t.Name, "rows", t.NumRows(), "path", path)
	return path, nil
}
