package validate

// rules.go provides the builtin rule constructors. Each returns a Rule value
// with its references declared, so rule sets stay data: adding a check means
// appending a constructor call, not branching the runner.

import (
	"fmt"
	"time"

	"hospitalmart/internal/table"
)

// rowKeyText renders a row's identity column for a violation record,
// honoring the column's declared type so numeric keys (synthetic fact keys)
// carry their value instead of an empty string.
func rowKeyText(t *table.Table, i int, rowKey string) string {
	pos, ok := t.Col(rowKey)
	if !ok {
		return ""
	}
	return t.Rows[i][pos].Render(t.Columns[pos].Type)
}

// ReferenceResolves checks that every valid value in refCol resolves to a
// key in refTable's keyCol. Orphan references yield one violation each,
// keyed by the row's own identity column.
func ReferenceResolves(name, tbl, rowKey, refCol, refTable, refKey string) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: []string{rowKey, refCol},
		Refs:    map[string][]string{refTable: {refKey}},
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			ref := ctx.Table(refTable)

			keys := make(map[string]bool, ref.NumRows())
			for i := 0; i < ref.NumRows(); i++ {
				if v := ref.Value(i, refKey); v.Valid {
					keys[v.Text] = true
				}
			}

			var out []Violation
			for i := 0; i < t.NumRows(); i++ {
				v := t.Value(i, refCol)
				if !v.Valid || keys[v.Text] {
					continue
				}
				out = append(out, Violation{
					Rule:   name,
					Table:  tbl,
					RowKey: rowKeyText(t, i, rowKey),
					Detail: fmt.Sprintf("%s %q resolves to no row in %s", refCol, v.Text, refTable),
				})
			}
			return out
		},
	}
}

// NonNegative checks that every valid value in the given numeric columns
// is >= 0.
func NonNegative(name, tbl, rowKey string, cols ...string) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: append([]string{rowKey}, cols...),
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			var out []Violation
			for i := 0; i < t.NumRows(); i++ {
				for _, col := range cols {
					v := t.Value(i, col)
					if v.Valid && v.Num < 0 {
						out = append(out, Violation{
							Rule:   name,
							Table:  tbl,
							RowKey: rowKeyText(t, i, rowKey),
							Detail: fmt.Sprintf("%s is negative (%s)", col, v.Render(table.FieldNumeric)),
						})
					}
				}
			}
			return out
		},
	}
}

// Ordered checks that firstCol <= secondCol wherever both are present.
// Covers both "end not before start" and "birth not after encounter".
func Ordered(name, tbl, rowKey, firstCol, secondCol string) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: []string{rowKey, firstCol, secondCol},
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			var out []Violation
			for i := 0; i < t.NumRows(); i++ {
				a, b := t.Value(i, firstCol), t.Value(i, secondCol)
				if !a.Valid || !b.Valid {
					continue
				}
				if b.Time.Before(a.Time) {
					out = append(out, Violation{
						Rule:   name,
						Table:  tbl,
						RowKey: rowKeyText(t, i, rowKey),
						Detail: fmt.Sprintf("%s (%s) precedes %s (%s)",
							secondCol, b.Render(table.FieldDateTime),
							firstCol, a.Render(table.FieldDateTime)),
					})
				}
			}
			return out
		},
	}
}

// DateWithin checks that every valid date in col lies inside [min, max].
func DateWithin(name, tbl, rowKey, col string, min, max time.Time) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: []string{rowKey, col},
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			var out []Violation
			for i := 0; i < t.NumRows(); i++ {
				v := t.Value(i, col)
				if !v.Valid {
					continue
				}
				if v.Time.Before(min) || v.Time.After(max) {
					out = append(out, Violation{
						Rule:   name,
						Table:  tbl,
						RowKey: rowKeyText(t, i, rowKey),
						Detail: fmt.Sprintf("%s (%s) outside plausible range", col, v.Render(table.FieldDate)),
					})
				}
			}
			return out
		},
	}
}

// UniqueKey checks that no key value occurs twice in keyCol.
func UniqueKey(name, tbl, keyCol string) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: []string{keyCol},
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			seen := make(map[string]int, t.NumRows())
			var out []Violation
			for i := 0; i < t.NumRows(); i++ {
				if !t.Value(i, keyCol).Valid {
					continue
				}
				key := rowKeyText(t, i, keyCol)
				seen[key]++
				if seen[key] == 2 {
					out = append(out, Violation{
						Rule:   name,
						Table:  tbl,
						RowKey: key,
						Detail: fmt.Sprintf("duplicate %s", keyCol),
					})
				}
			}
			return out
		},
	}
}

// Completeness checks that the fraction of missing values in col does not
// exceed tolerance. Produces at most one table-level violation.
func Completeness(name, tbl, col string, tolerance float64) Rule {
	return Rule{
		Name:    name,
		Table:   tbl,
		Columns: []string{col},
		Check: func(ctx *Context) []Violation {
			t := ctx.Table(tbl)
			if t.NumRows() == 0 {
				return nil
			}
			missing := 0
			for i := 0; i < t.NumRows(); i++ {
				if !t.Value(i, col).Valid {
					missing++
				}
			}
			frac := float64(missing) / float64(t.NumRows())
			if frac <= tolerance {
				return nil
			}
			return []Violation{{
				Rule:  name,
				Table: tbl,
				Detail: fmt.Sprintf("%s missing in %d of %d rows (%.1f%%, tolerance %.1f%%)",
					col, missing, t.NumRows(), frac*100, tolerance*100),
			}}
		},
	}
}
