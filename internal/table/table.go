// Package table provides the in-memory tabular structures shared by every
// pipeline stage. A Table is an ordered set of typed columns plus rows of
// Values; a Value is either present or the missing sentinel. Tables are
// created fresh by each stage and never mutated by downstream consumers.
package table

import (
	"fmt"
	"strings"
)

// FieldType is the semantic type of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldCode
	FieldDate
	FieldDateTime
	FieldNumeric
)

// TypeName returns a human-readable name for a field type.
func TypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldCode:
		return "code"
	case FieldDate:
		return "date"
	case FieldDateTime:
		return "datetime"
	case FieldNumeric:
		return "numeric"
	default:
		return "value"
	}
}

// Column is a named, typed column in a table schema.
type Column struct {
	Name string
	Type FieldType
}

// Table is an ordered collection of typed rows. Row slices are aligned with
// Columns: row[i] holds the value for Columns[i].
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Value

	colIdx map[string]int
}

// New creates an empty table with the given column schema.
func New(name string, cols []Column) *Table {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[strings.ToLower(c.Name)] = i
	}
	return &Table{
		Name:    name,
		Columns: cols,
		colIdx:  idx,
	}
}

// Col returns the position of a column by name (case-insensitive).
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.colIdx[strings.ToLower(name)]
	return i, ok
}

// HasColumn reports whether the table declares a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Col(name)
	return ok
}

// Append adds a row. The row must have exactly one value per column.
func (t *Table) Append(row []Value) {
	if len(row) != len(t.Columns) {
		panic(fmt.Sprintf("table %s: row has %d values, schema has %d columns",
			t.Name, len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Value returns the value at row i for the named column.
// Returns the missing sentinel if the column does not exist.
func (t *Table) Value(i int, col string) Value {
	pos, ok := t.Col(col)
	if !ok {
		return Value{}
	}
	return t.Rows[i][pos]
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// KeyIndex builds a map from the named key column to row position.
// Returns an error naming the first duplicate key found, so callers can
// distinguish "dimension table still has duplicates" from lookup misses.
func (t *Table) KeyIndex(keyCol string) (map[string]int, error) {
	pos, ok := t.Col(keyCol)
	if !ok {
		return nil, fmt.Errorf("table %s: no column %q", t.Name, keyCol)
	}
	idx := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		v := row[pos]
		if !v.Valid {
			continue
		}
		if _, dup := idx[v.Text]; dup {
			return nil, fmt.Errorf("table %s: duplicate key %q in column %q", t.Name, v.Text, keyCol)
		}
		idx[v.Text] = i
	}
	return idx, nil
}
