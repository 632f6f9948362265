// Package pipeline sequences the transformation core: normalize → clean →
// reshape → join → validate. Stages run in strict order, each fully
// consuming its input before the next starts; every stage boundary is a
// safe checkpoint because no stage mutates its input. Given identical
// sources and configuration, two runs produce byte-identical tables and
// reports.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"hospitalmart/internal/clean"
	"hospitalmart/internal/config"
	"hospitalmart/internal/join"
	"hospitalmart/internal/normalize"
	"hospitalmart/internal/reshape"
	"hospitalmart/internal/table"
	"hospitalmart/internal/validate"
)

// Sources is the ingestion collaborator's hand-off: raw tabular rows per
// entity tag plus nested observation documents. The core never sees file
// formats, only these shapes.
type Sources struct {
	Rows      map[string][]normalize.RawRecord
	Documents []normalize.Document
}

// Result carries every produced table and report. Tables are immutable once
// the run returns; writers may serialize them to any sink.
type Result struct {
	RunID string

	// Tables holds every output table keyed by name: the cleaned entity
	// tables, obs_features, and fact_encounter_wide.
	Tables map[string]*table.Table

	// Fact and Features alias the two derived tables in Tables.
	Fact     *table.Table
	Features *table.Table

	SourceReports []normalize.SourceReport
	CleanReports  []clean.Report
	Reshape       reshape.Report
	Validation    *validate.Report

	Started  time.Time
	Duration time.Duration
}

// Run executes the full pipeline over in-memory sources.
//
// Structural errors (duplicate dimension keys at join time, misconfigured
// validation rules) abort the run with the failing stage named in the error.
// Data-quality findings never abort; they land in the result's reports.
func Run(src Sources, cfg *config.Pipeline) (*Result, error) {
	res := &Result{
		RunID:   uuid.NewString(),
		Tables:  make(map[string]*table.Table),
		Started: time.Now(),
	}
	logger := slog.With("run_id", res.RunID)
	logger.Info("pipeline starting")

	env := clean.Env{
		ReferenceDate: cfg.ReferenceTime(),
		Vocabularies:  cfg.Vocabularies,
	}

	// Normalize and clean each registered entity.
	for _, spec := range clean.All() {
		var records []normalize.RawRecord
		var report normalize.SourceReport

		if spec.Entity == normalize.EntityObservations {
			records, report = normalize.Observations(src.Documents)
		} else {
			records, report = normalize.Rows(spec.Entity, src.Rows[spec.Entity])
		}
		res.SourceReports = append(res.SourceReports, report)

		t, cleanReport := clean.Run(spec, records, env)
		res.Tables[spec.Table] = t
		res.CleanReports = append(res.CleanReports, cleanReport)
	}

	encounters := res.Tables["fact_encounter"]
	observations := res.Tables["fact_observation"]

	features, reshapeReport, err := reshape.Pivot(observations, encounters, cfg.TopCodes)
	if err != nil {
		return nil, fmt.Errorf("reshape stage: %w", err)
	}
	res.Features = features
	res.Reshape = reshapeReport
	res.Tables[features.Name] = features

	fact, err := join.Facts(encounters,
		res.Tables["dim_patient"], res.Tables["dim_provider"],
		res.Tables["dim_organization"], features)
	if err != nil {
		return nil, fmt.Errorf("join stage: %w", err)
	}
	res.Fact = fact
	res.Tables[fact.Name] = fact

	report, err := validate.Run(defaultRules(cfg), res.Tables)
	if err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	res.Validation = report

	res.Duration = time.Since(res.Started)
	logger.Info("pipeline complete",
		"tables", len(res.Tables),
		"violations", report.Total,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// TableNames returns the produced table names in sorted order.
func (r *Result) TableNames() []string {
	names := make([]string, 0, len(r.Tables))
	for n := range r.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
