// Package clean turns normalized raw records into typed dimension and fact
// tables. Each entity type registers an EntitySpec describing its fields,
// coercions, vocabulary mappings, and derived columns; a single generic
// engine applies every spec the same way, so new entity types never touch
// the pipeline driver.
package clean

import (
	"time"

	"hospitalmart/internal/table"
)

// FieldSpec defines cleaning rules for a single raw field.
type FieldSpec struct {
	Name       string              // Raw field name (lowercased, as normalized)
	Out        string              // Output column name (defaults to Name)
	Type       table.FieldType     // Target type; failed coercion yields the missing sentinel
	Vocabulary string              // Vocabulary name for code canonicalization, if any
	Normalizer func(string) string // Optional transformation applied before coercion
}

// Column returns the output column name for the field.
func (f FieldSpec) Column() string {
	if f.Out != "" {
		return f.Out
	}
	return f.Name
}

// Env carries run-level inputs derived fields may need.
type Env struct {
	// ReferenceDate anchors age-style computations.
	ReferenceDate time.Time

	// Vocabularies maps vocabulary name to lowercase code → canonical value.
	Vocabularies map[string]map[string]string
}

// DerivedSpec defines a column computed from already-cleaned values.
type DerivedSpec struct {
	Name   string
	Type   table.FieldType
	Derive func(env Env, get func(col string) table.Value) table.Value
}

// EntitySpec contains everything needed to clean one entity type.
type EntitySpec struct {
	Entity string // Entity tag, e.g. "patients"
	Table  string // Output table name, e.g. "dim_patient"
	Key    string // Output column holding the identity key

	// SyntheticKey, when true, means the source carries no identity key and
	// Key is assigned from read order instead.
	SyntheticKey bool

	Fields  []FieldSpec
	Derived []DerivedSpec
}

// Columns returns the output schema for the entity.
func (s EntitySpec) Columns() []table.Column {
	var cols []table.Column
	if s.SyntheticKey {
		cols = append(cols, table.Column{Name: s.Key, Type: table.FieldNumeric})
	}
	for _, f := range s.Fields {
		cols = append(cols, table.Column{Name: f.Column(), Type: f.Type})
	}
	for _, d := range s.Derived {
		cols = append(cols, table.Column{Name: d.Name, Type: d.Type})
	}
	return cols
}

// Report counts what cleaning did to one entity's rows.
type Report struct {
	Entity     string `json:"entity"`
	Table      string `json:"table"`
	RowsIn     int    `json:"rows_in"`
	RowsOut    int    `json:"rows_out"`
	Coerced    int    `json:"coerced"`    // values replaced with the missing sentinel
	Duplicates int    `json:"duplicates"` // rows replaced by a later row with the same key
	MissingKey int    `json:"missing_key"` // rows dropped for an empty identity key

	// UnmappedCodes counts code values that had a vocabulary but no mapping.
	UnmappedCodes map[string]int `json:"unmapped_codes,omitempty"`
}
