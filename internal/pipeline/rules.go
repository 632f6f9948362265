package pipeline

// rules.go assembles the builtin validation rule set. Rules are plain data
// from the validate package; tuning (date bounds, completeness tolerance,
// required columns) comes from the pipeline configuration.

import (
	"sort"

	"hospitalmart/internal/config"
	"hospitalmart/internal/validate"
)

func defaultRules(cfg *config.Pipeline) []validate.Rule {
	minDate, maxDate := cfg.DateBounds()

	rules := []validate.Rule{
		// No duplicate keys may survive cleaning.
		validate.UniqueKey("unique_patient_id", "dim_patient", "patient_id"),
		validate.UniqueKey("unique_encounter_id", "fact_encounter", "encounter_id"),
		validate.UniqueKey("unique_provider_id", "dim_provider", "provider_id"),
		validate.UniqueKey("unique_organization_id", "dim_organization", "organization_id"),

		// Referential integrity over the encounter fact and its satellites.
		validate.ReferenceResolves("encounter_patient_resolves",
			"fact_encounter", "encounter_id", "patient_id", "dim_patient", "patient_id"),
		validate.ReferenceResolves("encounter_provider_resolves",
			"fact_encounter", "encounter_id", "provider_id", "dim_provider", "provider_id"),
		validate.ReferenceResolves("encounter_organization_resolves",
			"fact_encounter", "encounter_id", "organization_id", "dim_organization", "organization_id"),
		validate.ReferenceResolves("medication_patient_resolves",
			"fact_medication", "medication_id", "patient_id", "dim_patient", "patient_id"),
		validate.ReferenceResolves("medication_encounter_resolves",
			"fact_medication", "medication_id", "encounter_id", "fact_encounter", "encounter_id"),
		validate.ReferenceResolves("observation_encounter_resolves",
			"fact_observation", "observation_id", "encounter_id", "fact_encounter", "encounter_id"),

		// Range and domain checks.
		validate.Ordered("encounter_stop_after_start",
			"fact_encounter", "encounter_id", "start", "stop"),
		validate.Ordered("birth_before_encounter",
			"fact_encounter_wide", "encounter_id", "patient_birthdate", "start"),
		validate.DateWithin("patient_birthdate_plausible",
			"dim_patient", "patient_id", "birthdate", minDate, maxDate),
		validate.DateWithin("encounter_start_plausible",
			"fact_encounter", "encounter_id", "start", minDate, maxDate),
		validate.NonNegative("encounter_costs_non_negative",
			"fact_encounter", "encounter_id",
			"base_encounter_cost", "total_claim_cost", "payer_coverage", "length_of_stay_hours"),
		validate.NonNegative("patient_finances_non_negative",
			"dim_patient", "patient_id", "healthcare_expenses", "healthcare_coverage"),
		validate.NonNegative("medication_costs_non_negative",
			"fact_medication", "medication_id", "base_cost", "totalcost", "payer_coverage"),
	}

	// Completeness rules from configuration, in deterministic order.
	tables := make([]string, 0, len(cfg.Validation.Required))
	for t := range cfg.Validation.Required {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		for _, col := range cfg.Validation.Required[t] {
			rules = append(rules, validate.Completeness(
				"complete_"+t+"_"+col, t, col, cfg.Validation.CompletenessTolerance))
		}
	}

	return rules
}
