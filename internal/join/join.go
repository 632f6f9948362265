// Package join combines the cleaned encounter table, its dimensions, and the
// observation feature table into the wide encounter fact table. The join is
// a left join anchored on encounters: every encounter yields exactly one
// output row, and unmatched dimension lookups fill with the missing sentinel
// instead of dropping or duplicating rows.
package join

import (
	"fmt"
	"log/slog"
	"strings"

	"hospitalmart/internal/table"
)

// CardinalityError indicates a dimension table still contains duplicate
// identity keys at join time. That means a cleaning invariant was violated,
// so the join aborts rather than silently duplicating fact rows.
type CardinalityError struct {
	Table string
	Key   string
	Cause error
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("join cardinality violation on %s(%s): %v", e.Table, e.Key, e.Cause)
}

func (e *CardinalityError) Unwrap() error { return e.Cause }

// lookup is one dimension side of the join: rows found by key column,
// selected columns copied out under a prefix.
type lookup struct {
	dim    *table.Table
	key    string // key column in the dimension
	ref    string // foreign key column in the encounter table
	prefix string
	cols   []string

	idx map[string]int
}

func (l *lookup) build() error {
	idx, err := l.dim.KeyIndex(l.key)
	if err != nil {
		return &CardinalityError{Table: l.dim.Name, Key: l.key, Cause: err}
	}
	l.idx = idx
	return nil
}

func (l *lookup) columns() []table.Column {
	out := make([]table.Column, 0, len(l.cols))
	for _, c := range l.cols {
		pos, _ := l.dim.Col(c)
		out = append(out, table.Column{
			Name: l.prefix + c,
			Type: l.dim.Columns[pos].Type,
		})
	}
	return out
}

// values returns the dimension values for one encounter row, or missing
// sentinels when the reference does not resolve.
func (l *lookup) values(ref table.Value) []table.Value {
	out := make([]table.Value, len(l.cols))
	if !ref.Valid {
		return out
	}
	row, ok := l.idx[ref.Text]
	if !ok {
		return out
	}
	for i, c := range l.cols {
		out[i] = l.dim.Value(row, c)
	}
	return out
}

// Facts builds fact_encounter_wide: encounter columns, denormalized
// patient/provider/organization attributes, and the feature columns.
//
// Guarantees: output row count equals the encounter row count, and the join
// is deterministic. Fails with a CardinalityError when any dimension (or the
// feature table) carries duplicate keys.
func Facts(encounters, patients, providers, organizations, features *table.Table) (*table.Table, error) {
	lookups := []*lookup{
		{dim: patients, key: "patient_id", ref: "patient_id", prefix: "patient_",
			cols: []string{"birthdate", "age_years", "gender", "city", "state", "healthcare_coverage"}},
		{dim: providers, key: "provider_id", ref: "provider_id", prefix: "provider_",
			cols: []string{"name", "speciality"}},
		{dim: organizations, key: "organization_id", ref: "organization_id", prefix: "organization_",
			cols: []string{"name", "city", "state"}},
	}
	for _, l := range lookups {
		if err := l.build(); err != nil {
			return nil, err
		}
	}

	featIdx, err := features.KeyIndex("encounter_id")
	if err != nil {
		return nil, &CardinalityError{Table: features.Name, Key: "encounter_id", Cause: err}
	}

	cols := make([]table.Column, 0, len(encounters.Columns)+16)
	cols = append(cols, encounters.Columns...)
	for _, l := range lookups {
		cols = append(cols, l.columns()...)
	}
	var featCols []string
	for _, c := range features.Columns {
		if strings.EqualFold(c.Name, "encounter_id") {
			continue
		}
		featCols = append(featCols, c.Name)
		cols = append(cols, c)
	}

	out := table.New("fact_encounter_wide", cols)

	for i := 0; i < encounters.NumRows(); i++ {
		row := make([]table.Value, 0, len(cols))
		row = append(row, encounters.Rows[i]...)

		for _, l := range lookups {
			row = append(row, l.values(encounters.Value(i, l.ref))...)
		}

		encKey := encounters.Value(i, "encounter_id")
		featRow, ok := -1, false
		if encKey.Valid {
			featRow, ok = featIdx[encKey.Text]
		}
		for _, c := range featCols {
			if ok {
				row = append(row, features.Value(featRow, c))
			} else {
				row = append(row, table.Missing)
			}
		}

		out.Append(row)
	}

	slog.Info("joined fact table", "rows", out.NumRows(), "columns", len(out.Columns))
	return out, nil
}
