package ingest

// fhir.go reads FHIR bundle files and extracts Observation resources. Each
// bundle is a JSON object with an "entry" list whose members wrap a
// "resource"; only resources with resourceType "Observation" survive.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"hospitalmart/internal/normalize"
)

type bundle struct {
	Entry []struct {
		Resource map[string]any `json:"resource"`
	} `json:"entry"`
}

// LoadBundleDir reads every *.json bundle under <root>/fhir, in sorted file
// order so document read order is deterministic across runs.
func LoadBundleDir(root string) ([]normalize.Document, error) {
	dir := filepath.Join(root, "fhir")
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(paths)

	var docs []normalize.Document
	for _, path := range paths {
		fileDocs, err := ReadBundleFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, fileDocs...)
	}

	slog.Info("read fhir sources", "files", len(paths), "observations", len(docs))
	return docs, nil
}

// ReadBundleFile extracts the Observation resources from one bundle file.
func ReadBundleFile(path string) ([]normalize.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	var docs []normalize.Document
	for _, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		if rt, _ := e.Resource["resourceType"].(string); rt == "Observation" {
			docs = append(docs, e.Resource)
		}
	}
	return docs, nil
}
