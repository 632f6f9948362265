package clean

// entities.go registers the cleaning specs for every entity type the
// pipeline ingests. Output column names follow the mart schema:
// dim_* for descriptive entities, fact_* for event rows.

import (
	"math"

	"hospitalmart/internal/table"
)

func init() {
	Register(patientSpec)
	Register(encounterSpec)
	Register(providerSpec)
	Register(organizationSpec)
	Register(medicationSpec)
	Register(observationSpec)
}

var patientSpec = EntitySpec{
	Entity: "patients",
	Table:  "dim_patient",
	Key:    "patient_id",
	Fields: []FieldSpec{
		{Name: "id", Out: "patient_id", Type: table.FieldText},
		{Name: "birthdate", Type: table.FieldDate},
		{Name: "gender", Type: table.FieldCode, Vocabulary: "gender"},
		{Name: "race", Type: table.FieldCode, Vocabulary: "race"},
		{Name: "ethnicity", Type: table.FieldCode, Vocabulary: "ethnicity"},
		{Name: "city", Type: table.FieldText},
		{Name: "state", Type: table.FieldText, Normalizer: NormalizeUsState},
		{Name: "zip", Type: table.FieldText},
		{Name: "healthcare_expenses", Type: table.FieldNumeric},
		{Name: "healthcare_coverage", Type: table.FieldNumeric},
	},
	Derived: []DerivedSpec{
		{
			Name: "age_years",
			Type: table.FieldNumeric,
			Derive: func(env Env, get func(string) table.Value) table.Value {
				birth := get("birthdate")
				if !birth.Valid || env.ReferenceDate.IsZero() {
					return table.Missing
				}
				days := env.ReferenceDate.Sub(birth.Time).Hours() / 24
				years := days / 365.25
				return table.Num(math.Round(years*10) / 10)
			},
		},
	},
}

var encounterSpec = EntitySpec{
	Entity: "encounters",
	Table:  "fact_encounter",
	Key:    "encounter_id",
	Fields: []FieldSpec{
		{Name: "id", Out: "encounter_id", Type: table.FieldText},
		{Name: "patient", Out: "patient_id", Type: table.FieldText},
		{Name: "organization", Out: "organization_id", Type: table.FieldText},
		{Name: "provider", Out: "provider_id", Type: table.FieldText},
		{Name: "start", Type: table.FieldDateTime},
		{Name: "stop", Type: table.FieldDateTime},
		{Name: "encounterclass", Type: table.FieldCode, Vocabulary: "encounter_class"},
		{Name: "code", Type: table.FieldCode},
		{Name: "description", Type: table.FieldText},
		{Name: "base_encounter_cost", Type: table.FieldNumeric},
		{Name: "total_claim_cost", Type: table.FieldNumeric},
		{Name: "payer_coverage", Type: table.FieldNumeric},
	},
	Derived: []DerivedSpec{
		{
			Name: "length_of_stay_hours",
			Type: table.FieldNumeric,
			Derive: func(env Env, get func(string) table.Value) table.Value {
				start, stop := get("start"), get("stop")
				if !start.Valid || !stop.Valid {
					return table.Missing
				}
				return table.Num(stop.Time.Sub(start.Time).Hours())
			},
		},
	},
}

var providerSpec = EntitySpec{
	Entity: "providers",
	Table:  "dim_provider",
	Key:    "provider_id",
	Fields: []FieldSpec{
		{Name: "id", Out: "provider_id", Type: table.FieldText},
		{Name: "organization", Out: "organization_id", Type: table.FieldText},
		{Name: "name", Type: table.FieldText},
		{Name: "gender", Type: table.FieldCode, Vocabulary: "gender"},
		{Name: "speciality", Type: table.FieldCode, Vocabulary: "speciality"},
		{Name: "state", Type: table.FieldText, Normalizer: NormalizeUsState},
		{Name: "zip", Type: table.FieldText},
		{Name: "utilization", Type: table.FieldNumeric},
	},
}

var organizationSpec = EntitySpec{
	Entity: "organizations",
	Table:  "dim_organization",
	Key:    "organization_id",
	Fields: []FieldSpec{
		{Name: "id", Out: "organization_id", Type: table.FieldText},
		{Name: "name", Type: table.FieldText},
		{Name: "city", Type: table.FieldText},
		{Name: "state", Type: table.FieldText, Normalizer: NormalizeUsState},
		{Name: "zip", Type: table.FieldText},
		{Name: "revenue", Type: table.FieldNumeric},
		{Name: "utilization", Type: table.FieldNumeric},
	},
}

// Medications carry no source key; medication_id is assigned from read order.
var medicationSpec = EntitySpec{
	Entity:       "medications",
	Table:        "fact_medication",
	Key:          "medication_id",
	SyntheticKey: true,
	Fields: []FieldSpec{
		{Name: "patient", Out: "patient_id", Type: table.FieldText},
		{Name: "encounter", Out: "encounter_id", Type: table.FieldText},
		{Name: "start", Type: table.FieldDateTime},
		{Name: "stop", Type: table.FieldDateTime},
		{Name: "code", Type: table.FieldCode},
		{Name: "description", Type: table.FieldText},
		{Name: "base_cost", Type: table.FieldNumeric},
		{Name: "totalcost", Type: table.FieldNumeric},
		{Name: "payer_coverage", Type: table.FieldNumeric},
	},
}

var observationSpec = EntitySpec{
	Entity: "observations",
	Table:  "fact_observation",
	Key:    "observation_id",
	Fields: []FieldSpec{
		{Name: "id", Out: "observation_id", Type: table.FieldText},
		{Name: "patient", Out: "patient_id", Type: table.FieldText},
		{Name: "encounter", Out: "encounter_id", Type: table.FieldText},
		{Name: "effective", Out: "observation_datetime", Type: table.FieldDateTime},
		{Name: "code_system", Type: table.FieldCode},
		{Name: "code", Type: table.FieldCode, Normalizer: NormalizeCode},
		{Name: "code_display", Type: table.FieldText},
		{Name: "value", Out: "result_value", Type: table.FieldNumeric},
		{Name: "unit", Out: "result_unit", Type: table.FieldText},
		{Name: "value_text", Out: "result_text", Type: table.FieldText},
	},
}
