// Package validate applies named, data-modeled rules to the produced tables
// and aggregates every violation into a structured report. Data-quality
// findings never abort a run; the only error this package raises is a
// ConfigurationError, when a rule references a table or column that does not
// exist — a programming mistake, not a data problem.
package validate

import (
	"fmt"
	"log/slog"
	"sort"

	"hospitalmart/internal/table"
)

// ConfigurationError indicates a rule references a missing table or column.
type ConfigurationError struct {
	Rule   string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("validator configuration: rule %q: %s", e.Rule, e.Detail)
}

// Violation is one rule finding against one row (or a whole table when
// RowKey is empty).
type Violation struct {
	Rule   string `json:"rule"`
	Table  string `json:"table"`
	RowKey string `json:"row_key,omitempty"`
	Detail string `json:"detail"`
}

// Report is the structured validation result: violations grouped by table
// plus summary counts.
type Report struct {
	Violations map[string][]Violation `json:"violations"`
	RuleCounts map[string]int         `json:"rule_counts"`
	Total      int                    `json:"total"`
}

// TablesChecked returns the violation table names in sorted order.
func (r *Report) TablesChecked() []string {
	names := make([]string, 0, len(r.Violations))
	for n := range r.Violations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Context gives rule predicates read access to every table of the run.
type Context struct {
	tables map[string]*table.Table
}

// Table returns a table by name; rules may assume it exists because the
// runner verified every declared reference before executing checks.
func (c *Context) Table(name string) *table.Table {
	return c.tables[name]
}

// Rule is one named predicate. Table/Columns/Refs declare everything the
// rule reads so the runner can verify references up front; Check produces
// zero or more violations and must not mutate any table.
type Rule struct {
	Name    string
	Table   string
	Columns []string
	Refs    map[string][]string // referenced table → columns read from it
	Check   func(*Context) []Violation
}

// Run executes rules in order against the given tables.
//
// Returns a ConfigurationError if any rule references an unknown table or
// column. Data-quality violations are aggregated into the report, never
// returned as errors.
func Run(rules []Rule, tables map[string]*table.Table) (*Report, error) {
	ctx := &Context{tables: tables}

	for _, r := range rules {
		if err := verifyRefs(r, tables); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Violations: make(map[string][]Violation),
		RuleCounts: make(map[string]int),
	}

	for _, r := range rules {
		found := r.Check(ctx)
		if len(found) == 0 {
			continue
		}
		for _, v := range found {
			report.Violations[v.Table] = append(report.Violations[v.Table], v)
		}
		report.RuleCounts[r.Name] += len(found)
		report.Total += len(found)
	}

	slog.Info("validation complete", "rules", len(rules), "violations", report.Total)
	return report, nil
}

func verifyRefs(r Rule, tables map[string]*table.Table) error {
	check := func(tbl string, cols []string) error {
		t, ok := tables[tbl]
		if !ok {
			return &ConfigurationError{Rule: r.Name, Detail: fmt.Sprintf("unknown table %q", tbl)}
		}
		for _, c := range cols {
			if !t.HasColumn(c) {
				return &ConfigurationError{
					Rule:   r.Name,
					Detail: fmt.Sprintf("table %q has no column %q", tbl, c),
				}
			}
		}
		return nil
	}

	if err := check(r.Table, r.Columns); err != nil {
		return err
	}
	for tbl, cols := range r.Refs {
		if err := check(tbl, cols); err != nil {
			return err
		}
	}
	return nil
}
