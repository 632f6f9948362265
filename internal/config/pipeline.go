package config

// pipeline.go loads the YAML pipeline configuration: vocabulary mapping
// tables, the observation feature-code allowlist, and validation bounds.
// All of it is optional; zero values give a usable default pipeline.

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline configuration validation errors.
var (
	ErrInvalidReferenceDate = errors.New("reference_date must be YYYY-MM-DD")
	ErrInvalidTolerance     = errors.New("validation.completeness_tolerance must be in [0, 1]")
	ErrInvalidDateBound     = errors.New("validation date bounds must be YYYY-MM-DD")
	ErrBoundsInverted       = errors.New("validation.min_date must not be after validation.max_date")
)

// Pipeline holds run-behavior configuration loaded from YAML.
type Pipeline struct {
	// ReferenceDate anchors derived ages, format YYYY-MM-DD.
	ReferenceDate string `yaml:"reference_date"`

	// TopCodes restricts which observation codes become feature columns.
	// Empty means every distinct code is pivoted.
	TopCodes []string `yaml:"top_codes"`

	// Vocabularies maps vocabulary name → source code → canonical value.
	Vocabularies map[string]map[string]string `yaml:"vocabularies"`

	Validation ValidationConfig `yaml:"validation"`
}

// ValidationConfig tunes the builtin validation rules.
type ValidationConfig struct {
	// MinDate/MaxDate bound plausible dates, format YYYY-MM-DD.
	MinDate string `yaml:"min_date"`
	MaxDate string `yaml:"max_date"`

	// CompletenessTolerance is the allowed missing fraction per required
	// column before a completeness violation is reported.
	CompletenessTolerance float64 `yaml:"completeness_tolerance"`

	// Required maps table name → columns subject to completeness checks.
	Required map[string][]string `yaml:"required"`
}

// DefaultPipeline returns the configuration used when no YAML file exists.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		ReferenceDate: "2020-01-01",
		Validation: ValidationConfig{
			MinDate:               "1900-01-01",
			MaxDate:               "2100-01-01",
			CompletenessTolerance: 0.05,
			Required: map[string][]string{
				"dim_patient":    {"patient_id", "birthdate", "gender"},
				"fact_encounter": {"encounter_id", "patient_id", "start", "stop"},
			},
		},
	}
}

// LoadPipeline reads and validates the YAML pipeline configuration.
// A missing file yields the defaults, not an error.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPipeline(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	p := DefaultPipeline()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}

	// Vocabulary lookups are case-insensitive on the source side.
	for name, vocab := range p.Vocabularies {
		lowered := make(map[string]string, len(vocab))
		for k, v := range vocab {
			lowered[strings.ToLower(k)] = v
		}
		p.Vocabularies[name] = lowered
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("pipeline config %s: %w", path, err)
	}
	return p, nil
}

func (p *Pipeline) validate() error {
	if _, err := time.Parse("2006-01-02", p.ReferenceDate); err != nil {
		return ErrInvalidReferenceDate
	}
	if p.Validation.CompletenessTolerance < 0 || p.Validation.CompletenessTolerance > 1 {
		return ErrInvalidTolerance
	}
	min, err := time.Parse("2006-01-02", p.Validation.MinDate)
	if err != nil {
		return ErrInvalidDateBound
	}
	max, err := time.Parse("2006-01-02", p.Validation.MaxDate)
	if err != nil {
		return ErrInvalidDateBound
	}
	if min.After(max) {
		return ErrBoundsInverted
	}
	return nil
}

// ReferenceTime returns the parsed reference date.
func (p *Pipeline) ReferenceTime() time.Time {
	t, _ := time.Parse("2006-01-02", p.ReferenceDate)
	return t
}

// DateBounds returns the parsed plausible-date window.
func (p *Pipeline) DateBounds() (time.Time, time.Time) {
	min, _ := time.Parse("2006-01-02", p.Validation.MinDate)
	max, _ := time.Parse("2006-01-02", p.Validation.MaxDate)
	return min, max
}
