package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hospitalmart/internal/clean"
	"hospitalmart/internal/normalize"
	"hospitalmart/internal/pipeline"
	"hospitalmart/internal/reshape"
	"hospitalmart/internal/validate"
)

// RunReport is the JSON summary written next to the output tables.
type RunReport struct {
	RunID      string         `json:"run_id"`
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"duration_ms"`
	Tables     map[string]int `json:"tables"` // table name → row count

	Sources    []normalize.SourceReport `json:"sources"`
	Cleaning   []clean.Report           `json:"cleaning"`
	Reshape    reshape.Report           `json:"reshape"`
	Validation *validate.Report         `json:"validation"`
}

// NewRunReport summarizes a pipeline result for serialization.
func NewRunReport(res *pipeline.Result) *RunReport {
	counts := make(map[string]int, len(res.Tables))
	for name, t := range res.Tables {
		counts[name] = t.NumRows()
	}
	return &RunReport{
		RunID:      res.RunID,
		Started:    res.Started.UTC(),
		DurationMS: res.Duration.Milliseconds(),
		Tables:     counts,
		Sources:    res.SourceReports,
		Cleaning:   res.CleanReports,
		Reshape:    res.Reshape,
		Validation: res.Validation,
	}
}

// WriteAll persists every result table to dir as CSV, parquet mirrors when
// enabled, and the run report as run_report.json.
func WriteAll(dir string, res *pipeline.Result, withParquet bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, name := range res.TableNames() {
		t := res.Tables[name]
		if _, err := WriteCSV(dir, t); err != nil {
			return err
		}
		if withParquet {
			if _, err := WriteParquet(dir, t); err != nil {
				return err
			}
		}
	}

	path := filepath.Join(dir, "run_report.json")
	data, err := json.MarshalIndent(NewRunReport(res), "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}

	slog.Info("wrote outputs", "dir", dir, "tables", len(res.Tables), "parquet", withParquet)
	return nil
}
