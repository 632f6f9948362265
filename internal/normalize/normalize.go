// Package normalize converts raw exports into uniform records the cleaners
// can consume. Tabular sources arrive as string-keyed rows; clinical
// observation documents arrive as nested JSON objects and are flattened
// here. Field names are lowercased and cell artifacts stripped, but values
// stay untyped strings: type coercion belongs to the cleaning stage.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"hospitalmart/internal/table"
)

// Entity tags for the sources this pipeline understands.
const (
	EntityPatients      = "patients"
	EntityEncounters    = "encounters"
	EntityProviders     = "providers"
	EntityOrganizations = "organizations"
	EntityMedications   = "medications"
	EntityObservations  = "observations"
)

// RawRecord is one normalized record: lowercased field names, raw string
// values. Missing fields are simply absent keys.
type RawRecord map[string]string

// Document is one nested clinical document as decoded from JSON.
type Document = map[string]any

// keyFields names the structurally required identifying field per entity.
// Medications carry no source key; the cleaner assigns a synthetic one.
var keyFields = map[string]string{
	EntityPatients:      "id",
	EntityEncounters:    "id",
	EntityProviders:     "id",
	EntityOrganizations: "id",
	EntityMedications:   "",
	EntityObservations:  "id",
}

// MalformedRecordError indicates a record is structurally broken: its
// identifying field is absent. Such records are dropped and counted by the
// normalizer, never fatal to the run.
type MalformedRecordError struct {
	Entity string
	Index  int
	Field  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record at index %d: missing %q", e.Entity, e.Index, e.Field)
}

// SourceReport counts rows read and dropped for one source.
type SourceReport struct {
	Entity      string `json:"entity"`
	RowsRead    int    `json:"rows_read"`
	RowsDropped int    `json:"rows_dropped"`
}

// Rows normalizes tabular records for the given entity tag: field names are
// lowercased, cell artifacts removed, and records missing the entity's
// identifying field dropped and counted.
func Rows(entity string, rows []RawRecord) ([]RawRecord, SourceReport) {
	report := SourceReport{Entity: entity, RowsRead: len(rows)}
	key := keyFields[entity]

	out := make([]RawRecord, 0, len(rows))
	for i, row := range rows {
		rec := make(RawRecord, len(row))
		for name, val := range row {
			rec[strings.ToLower(strings.TrimSpace(name))] = table.CleanCell(val)
		}
		if key != "" {
			if _, ok := rec[key]; !ok {
				err := &MalformedRecordError{Entity: entity, Index: i, Field: key}
				slog.Warn("dropping malformed record", "entity", entity, "error", err)
				report.RowsDropped++
				continue
			}
		}
		out = append(out, rec)
	}

	slog.Info("normalized source", "entity", entity,
		"rows_read", report.RowsRead, "rows_dropped", report.RowsDropped)
	return out, report
}

// Observations flattens nested observation documents into uniform records.
// Documents without an identifying key are dropped and counted.
func Observations(docs []Document) ([]RawRecord, SourceReport) {
	report := SourceReport{Entity: EntityObservations, RowsRead: len(docs)}

	out := make([]RawRecord, 0, len(docs))
	for i, doc := range docs {
		rec, err := flattenObservation(doc)
		if err != nil {
			merr := &MalformedRecordError{Entity: EntityObservations, Index: i, Field: "id"}
			slog.Warn("dropping malformed document", "entity", EntityObservations, "error", merr)
			report.RowsDropped++
			continue
		}
		out = append(out, rec)
	}

	slog.Info("normalized source", "entity", EntityObservations,
		"rows_read", report.RowsRead, "rows_dropped", report.RowsDropped)
	return out, report
}

// flattenObservation extracts the fields of interest from one observation
// document. Output field names line up with the observation cleaner spec.
func flattenObservation(doc Document) (RawRecord, error) {
	id := stringAt(doc, "id")
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}

	rec := RawRecord{
		"id":        id,
		"patient":   StripReference(stringAt(doc, "subject", "reference")),
		"encounter": StripReference(stringAt(doc, "encounter", "reference")),
		"effective": stringAt(doc, "effectiveDateTime"),
	}

	// First coding entry carries system/code/display; code.text is the
	// fallback display.
	if codings, ok := sliceAt(doc, "code", "coding"); ok && len(codings) > 0 {
		if c, ok := codings[0].(map[string]any); ok {
			rec["code_system"] = stringAt(c, "system")
			rec["code"] = stringAt(c, "code")
			rec["code_display"] = stringAt(c, "display")
		}
	}
	if rec["code_display"] == "" {
		rec["code_display"] = stringAt(doc, "code", "text")
	}

	// Value is numeric (valueQuantity), string (valueString), or coded
	// (valueCodeableConcept).
	switch {
	case has(doc, "valueQuantity"):
		rec["value"] = numberAt(doc, "valueQuantity", "value")
		rec["unit"] = stringAt(doc, "valueQuantity", "unit")
	case has(doc, "valueString"):
		rec["value_text"] = stringAt(doc, "valueString")
	case has(doc, "valueCodeableConcept"):
		if codings, ok := sliceAt(doc, "valueCodeableConcept", "coding"); ok && len(codings) > 0 {
			if c, ok := codings[0].(map[string]any); ok {
				rec["value_text"] = stringAt(c, "code")
			}
		}
		if rec["value_text"] == "" {
			rec["value_text"] = stringAt(doc, "valueCodeableConcept", "text")
		}
	}

	return rec, nil
}

// StripReference removes FHIR reference prefixes, leaving the bare key.
func StripReference(ref string) string {
	ref = strings.TrimPrefix(ref, "urn:uuid:")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

func has(doc map[string]any, key string) bool {
	_, ok := doc[key]
	return ok
}

// stringAt walks nested maps along path and returns the string leaf, or "".
func stringAt(doc map[string]any, path ...string) string {
	v, ok := at(doc, path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// numberAt walks nested maps along path and renders a JSON number as a
// string, so cleaning can coerce it like any other raw value.
func numberAt(doc map[string]any, path ...string) string {
	v, ok := at(doc, path...)
	if !ok {
		return ""
	}
	switch n := v.(type) {
	case float64:
		return table.Num(n).Render(table.FieldNumeric)
	case string:
		return strings.TrimSpace(n)
	default:
		return ""
	}
}

func sliceAt(doc map[string]any, path ...string) ([]any, bool) {
	v, ok := at(doc, path...)
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

func at(doc map[string]any, path ...string) (any, bool) {
	var cur any = doc
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
