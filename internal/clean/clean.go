package clean

// clean.go is the generic cleaning engine. One entity spec in, one typed
// table plus a report out. The engine never mutates its input records and
// never aborts on bad data: uncoercible values become the missing sentinel,
// duplicate keys are resolved last-seen-wins, and everything is counted.

import (
	"log/slog"
	"sort"
	"strings"

	"hospitalmart/internal/normalize"
	"hospitalmart/internal/table"
)

// Run cleans one entity's normalized records into a typed table.
//
// Guarantees on the output table:
//   - identity keys are unique (later records in read order win)
//   - every value either coerced to the column type or the missing sentinel
//   - row order is deterministic: first-seen key order, duplicates replaced
//     in place
func Run(spec EntitySpec, records []normalize.RawRecord, env Env) (*table.Table, Report) {
	report := Report{
		Entity:        spec.Entity,
		Table:         spec.Table,
		RowsIn:        len(records),
		UnmappedCodes: make(map[string]int),
	}

	t := table.New(spec.Table, spec.Columns())
	keyPos, _ := t.Col(spec.Key)
	byKey := make(map[string]int, len(records))

	for seq, rec := range records {
		row := make([]table.Value, 0, len(t.Columns))

		if spec.SyntheticKey {
			row = append(row, table.Num(float64(seq)))
		}

		for _, f := range spec.Fields {
			row = append(row, cleanField(f, rec[f.Name], env, &report))
		}

		get := func(col string) table.Value {
			pos, ok := t.Col(col)
			if !ok || pos >= len(row) {
				return table.Missing
			}
			return row[pos]
		}
		for _, d := range spec.Derived {
			row = append(row, d.Derive(env, get))
		}

		if spec.SyntheticKey {
			t.Append(row)
			continue
		}

		key := row[keyPos]
		if !key.Valid {
			report.MissingKey++
			continue
		}
		if pos, dup := byKey[key.Text]; dup {
			// Last-seen record wins; row keeps its original position.
			t.Rows[pos] = row
			report.Duplicates++
			continue
		}
		byKey[key.Text] = t.NumRows()
		t.Append(row)
	}

	report.RowsOut = t.NumRows()
	slog.Info("cleaned entity", "entity", spec.Entity, "table", spec.Table,
		"rows_in", report.RowsIn, "rows_out", report.RowsOut,
		"coerced", report.Coerced, "duplicates", report.Duplicates,
		"missing_key", report.MissingKey, "unmapped_codes", len(report.UnmappedCodes))

	return t, report
}

// cleanField normalizes, vocabulary-maps, and coerces one raw value.
func cleanField(f FieldSpec, raw string, env Env, report *Report) table.Value {
	raw = table.CleanCell(raw)

	if f.Normalizer != nil && raw != "" {
		raw = f.Normalizer(raw)
	}

	if f.Vocabulary != "" && raw != "" {
		if vocab, ok := env.Vocabularies[f.Vocabulary]; ok {
			if mapped, ok := vocab[strings.ToLower(raw)]; ok {
				raw = mapped
			} else {
				// Unmapped codes pass through unchanged but are flagged.
				report.UnmappedCodes[raw]++
			}
		}
	}

	v := table.Coerce(raw, f.Type)
	if raw != "" && !v.Valid {
		report.Coerced++
		slog.Debug("uncoercible value replaced with sentinel",
			"field", f.Column(), "type", table.TypeName(f.Type), "value", raw)
	}
	return v
}

// UnmappedCodeList returns the report's unmapped codes sorted by value,
// for deterministic serialization.
func (r Report) UnmappedCodeList() []string {
	codes := make([]string, 0, len(r.UnmappedCodes))
	for c := range r.UnmappedCodes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
