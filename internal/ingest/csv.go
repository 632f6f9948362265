// Package ingest reads raw hospital exports from a source directory and
// hands them to the core as plain rows and documents. All file-format
// knowledge stays here: the core only ever sees string-keyed records and
// decoded JSON objects.
//
// Expected layout under the source root:
//
//	<root>/csv/patients.csv, encounters.csv, providers.csv,
//	            organizations.csv, medications.csv
//	<root>/fhir/*.json        (FHIR bundles carrying Observation resources)
//
// Missing files are skipped with a warning; an entity with no file simply
// contributes zero rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hospitalmart/internal/normalize"
)

// utf8BOM is stripped from the front of Windows-exported files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// entityFiles maps entity tags to their CSV file names.
var entityFiles = map[string]string{
	normalize.EntityPatients:      "patients.csv",
	normalize.EntityEncounters:    "encounters.csv",
	normalize.EntityProviders:     "providers.csv",
	normalize.EntityOrganizations: "organizations.csv",
	normalize.EntityMedications:   "medications.csv",
}

// LoadCSVDir reads every known entity CSV under <root>/csv.
func LoadCSVDir(root string) (map[string][]normalize.RawRecord, error) {
	dir := filepath.Join(root, "csv")
	out := make(map[string][]normalize.RawRecord, len(entityFiles))

	for entity, file := range entityFiles {
		path := filepath.Join(dir, file)
		rows, err := ReadCSVFile(path)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("source file missing, entity will be empty", "entity", entity, "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out[entity] = rows
	}

	return out, nil
}

// ReadCSVFile reads one CSV file into raw records keyed by its header row.
// The file is BOM-stripped and sanitized to valid UTF-8 before parsing, and
// short rows are tolerated (absent trailing fields stay absent keys).
func ReadCSVFile(path string) ([]normalize.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("�"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []normalize.RawRecord
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		// Skip fully empty rows
		empty := true
		for _, v := range record {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		rec := make(normalize.RawRecord, len(header))
		for i, h := range header {
			if i < len(record) {
				rec[h] = record[i]
			}
		}
		rows = append(rows, rec)
	}

	slog.Info("read csv source", "path", path, "rows", len(rows))
	return rows, nil
}
