// Package reshape flattens the long-format observation table into a wide
// per-encounter feature table. Rows are indexed by encounter key first,
// observation code second; each (encounter, code) group collapses to the
// value with the latest timestamp, later read order breaking ties.
package reshape

import (
	"fmt"
	"log/slog"
	"sort"

	"hospitalmart/internal/table"
)

// Report describes what the reshaping stage saw and did.
type Report struct {
	Observations int `json:"observations"`   // cleaned observation rows consumed
	Encounters   int `json:"encounters"`     // encounters receiving a feature row
	Features     int `json:"features"`       // distinct observation codes pivoted to columns
	Collapsed    int `json:"collapsed"`      // (encounter, code) groups that held more than one row
	SkippedNoKey int `json:"skipped_no_key"` // observations missing encounter reference or code

	// OrphanEncounters lists encounter references that resolve to no cleaned
	// encounter. Their feature rows are retained; the validator decides
	// whether that is fatal.
	OrphanEncounters []string `json:"orphan_encounters,omitempty"`
}

// cell is one (encounter, code) slot during aggregation.
type cell struct {
	value   table.Value
	numeric bool
	ts      table.Value
	ord     int
	count   int
}

// wins reports whether a candidate observation replaces the current cell.
// Later timestamps win; equal or missing timestamps fall back to read order,
// where the later row always wins.
func (c *cell) wins(ts table.Value) bool {
	switch {
	case !c.ts.Valid:
		return true
	case !ts.Valid:
		return false
	default:
		return !ts.Time.Before(c.ts.Time)
	}
}

// Pivot produces one feature row per encounter: encounter_id plus one column
// per distinct observation code. Encounters with zero observations receive a
// row of missing sentinels; observation rows referencing unknown encounters
// are retained and flagged as orphans.
//
// When topCodes is non-empty, only the listed codes become feature columns.
func Pivot(obs, encounters *table.Table, topCodes []string) (*table.Table, Report, error) {
	report := Report{Observations: obs.NumRows()}

	encIdx, err := encounters.KeyIndex("encounter_id")
	if err != nil {
		return nil, report, fmt.Errorf("reshape: %w", err)
	}

	var allowed map[string]bool
	if len(topCodes) > 0 {
		allowed = make(map[string]bool, len(topCodes))
		for _, c := range topCodes {
			allowed[c] = true
		}
	}

	// Two-level index: encounter key → code → winning cell.
	cells := make(map[string]map[string]*cell)
	codes := make(map[string]bool)

	for i := 0; i < obs.NumRows(); i++ {
		enc := obs.Value(i, "encounter_id")
		code := obs.Value(i, "code")
		if !enc.Valid || !code.Valid {
			report.SkippedNoKey++
			continue
		}
		if allowed != nil && !allowed[code.Text] {
			continue
		}

		value := obs.Value(i, "result_value")
		numeric := value.Valid
		if !numeric {
			value = obs.Value(i, "result_text")
		}
		ts := obs.Value(i, "observation_datetime")

		byCode := cells[enc.Text]
		if byCode == nil {
			byCode = make(map[string]*cell)
			cells[enc.Text] = byCode
		}
		codes[code.Text] = true

		cur := byCode[code.Text]
		if cur == nil {
			byCode[code.Text] = &cell{value: value, numeric: numeric, ts: ts, ord: i, count: 1}
			continue
		}
		cur.count++
		if cur.count == 2 {
			report.Collapsed++
		}
		if cur.wins(ts) {
			cur.value, cur.numeric, cur.ts, cur.ord = value, numeric, ts, i
		}
	}

	// Feature columns in sorted code order; a column is numeric only when
	// every winning value for it is numeric.
	codeList := make([]string, 0, len(codes))
	for c := range codes {
		codeList = append(codeList, c)
	}
	sort.Strings(codeList)

	colType := make(map[string]table.FieldType, len(codeList))
	for _, c := range codeList {
		colType[c] = table.FieldNumeric
	}
	for _, byCode := range cells {
		for code, cl := range byCode {
			if cl.value.Valid && !cl.numeric {
				colType[code] = table.FieldText
			}
		}
	}

	cols := make([]table.Column, 0, len(codeList)+1)
	cols = append(cols, table.Column{Name: "encounter_id", Type: table.FieldText})
	for _, c := range codeList {
		cols = append(cols, table.Column{Name: c, Type: colType[c]})
	}
	out := table.New("obs_features", cols)

	appendRow := func(encKey string) {
		row := make([]table.Value, 1, len(cols))
		row[0] = table.Text(encKey)
		byCode := cells[encKey]
		for _, c := range codeList {
			if cl, ok := byCode[c]; ok {
				row = append(row, cl.value)
			} else {
				row = append(row, table.Missing)
			}
		}
		out.Append(row)
	}

	// Every cleaned encounter gets a row, observations or not.
	for i := 0; i < encounters.NumRows(); i++ {
		key := encounters.Value(i, "encounter_id")
		if !key.Valid {
			continue
		}
		appendRow(key.Text)
	}

	// Orphan encounter references follow, in sorted order.
	orphans := make([]string, 0)
	for enc := range cells {
		if _, ok := encIdx[enc]; !ok {
			orphans = append(orphans, enc)
		}
	}
	sort.Strings(orphans)
	for _, enc := range orphans {
		appendRow(enc)
	}

	report.Encounters = encounters.NumRows()
	report.Features = len(codeList)
	report.OrphanEncounters = orphans

	slog.Info("reshaped observations",
		"observations", report.Observations, "encounters", report.Encounters,
		"features", report.Features, "collapsed", report.Collapsed,
		"orphans", len(orphans), "skipped_no_key", report.SkippedNoKey)

	return out, report, nil
}
