package pipeline

import (
	"strings"
	"testing"

	"hospitalmart/internal/config"
	"hospitalmart/internal/normalize"
	"hospitalmart/internal/table"
)

func testSources() Sources {
	return Sources{
		Rows: map[string][]normalize.RawRecord{
			normalize.EntityPatients: {
				{"id": "P1", "birthdate": "1980-06-15", "gender": "M", "city": "Boston",
					"state": "Massachusetts", "healthcare_expenses": "1000", "healthcare_coverage": "800"},
				{"id": "P2", "birthdate": "1995-03-02", "gender": "F", "city": "Salem",
					"state": "MA", "healthcare_expenses": "500", "healthcare_coverage": "400"},
			},
			normalize.EntityEncounters: {
				{"id": "E1", "patient": "P1", "provider": "PR1", "organization": "OR1",
					"start": "2019-05-14T08:00:00Z", "stop": "2019-05-14T12:00:00Z",
					"total_claim_cost": "150"},
				{"id": "E2", "patient": "P9", // orphan patient reference
					"start": "2019-06-01T09:00:00Z", "stop": "2019-06-01T10:00:00Z",
					"total_claim_cost": "80"},
			},
			normalize.EntityProviders: {
				{"id": "PR1", "name": "Dr. Quinn", "organization": "OR1", "speciality": "GENERAL PRACTICE"},
			},
			normalize.EntityOrganizations: {
				{"id": "OR1", "name": "General Hospital", "city": "Boston", "state": "MA"},
			},
			normalize.EntityMedications: {
				{"patient": "P1", "encounter": "E1", "code": "860975",
					"description": "Metformin", "base_cost": "12.5", "totalcost": "25", "payer_coverage": "10"},
			},
		},
		Documents: []normalize.Document{
			obsDoc("O1", "P1", "E1", "2019-05-14T10:00:00Z", "8867-4", 72),
			obsDoc("O2", "P1", "E1", "2019-05-14T10:05:00Z", "8867-4", 75),
			obsDoc("O3", "P1", "E1", "2019-05-14T10:00:00Z", "8480-6", 120),
		},
	}
}

func obsDoc(id, patient, encounter, ts, code string, value float64) normalize.Document {
	return normalize.Document{
		"resourceType":      "Observation",
		"id":                id,
		"effectiveDateTime": ts,
		"subject":           map[string]any{"reference": "urn:uuid:" + patient},
		"encounter":         map[string]any{"reference": "Encounter/" + encounter},
		"code": map[string]any{
			"coding": []any{map[string]any{"system": "http://loinc.org", "code": code, "display": code}},
		},
		"valueQuantity": map[string]any{"value": value, "unit": "/min"},
	}
}

func testPipelineConfig() *config.Pipeline {
	cfg := config.DefaultPipeline()
	cfg.Vocabularies = map[string]map[string]string{
		"gender": {"m": "male", "f": "female"},
	}
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	res, err := Run(testSources(), testPipelineConfig())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID not assigned")
	}

	wantTables := []string{
		"dim_organization", "dim_patient", "dim_provider",
		"fact_encounter", "fact_encounter_wide", "fact_medication",
		"fact_observation", "obs_features",
	}
	if got := res.TableNames(); strings.Join(got, ",") != strings.Join(wantTables, ",") {
		t.Fatalf("tables = %v, want %v", got, wantTables)
	}

	// Every encounter yields exactly one wide fact row.
	if res.Fact.NumRows() != res.Tables["fact_encounter"].NumRows() {
		t.Errorf("fact rows = %d, want %d", res.Fact.NumRows(), res.Tables["fact_encounter"].NumRows())
	}

	// The later heart-rate reading wins the pivot.
	if got := res.Features.Value(0, "8867-4"); got.Num != 75 {
		t.Errorf("8867-4 = %v, want 75", got.Num)
	}

	// E1 denormalizes its patient; E2's orphan reference fills with sentinels.
	if got := res.Fact.Value(0, "patient_city"); got.Text != "Boston" {
		t.Errorf("patient_city = %q, want Boston", got.Text)
	}
	if res.Fact.Value(1, "patient_city").Valid {
		t.Error("orphan encounter should carry the missing sentinel for patient columns")
	}

	// The orphan reference is a finding, not an abort.
	if res.Validation == nil {
		t.Fatal("validation report missing")
	}
	if got := res.Validation.RuleCounts["encounter_patient_resolves"]; got != 1 {
		t.Errorf("encounter_patient_resolves violations = %d, want 1", got)
	}
}

func TestRunIdempotent(t *testing.T) {
	first, err := Run(testSources(), testPipelineConfig())
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	second, err := Run(testSources(), testPipelineConfig())
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	for _, name := range first.TableNames() {
		a, b := first.Tables[name], second.Tables[name]
		if renderTable(a) != renderTable(b) {
			t.Errorf("table %s differs between identical runs", name)
		}
	}
	if first.Validation.Total != second.Validation.Total {
		t.Errorf("validation totals differ: %d vs %d", first.Validation.Total, second.Validation.Total)
	}
}

func TestRunEmptySources(t *testing.T) {
	res, err := Run(Sources{}, testPipelineConfig())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	for _, name := range res.TableNames() {
		if res.Tables[name].NumRows() != 0 {
			t.Errorf("table %s has %d rows, want 0", name, res.Tables[name].NumRows())
		}
	}
}

func TestRunMedicationViolationsCarryRowIdentity(t *testing.T) {
	src := testSources()
	src.Rows[normalize.EntityMedications] = append(src.Rows[normalize.EntityMedications],
		normalize.RawRecord{"patient": "NOPE", "encounter": "E1", "code": "860975", "base_cost": "-3"})

	res, err := Run(src, testPipelineConfig())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	// The offending medication is the second row, so its synthetic key is 1.
	found := map[string]bool{}
	for _, v := range res.Validation.Violations["fact_medication"] {
		if v.RowKey == "" {
			t.Errorf("rule %s violation has empty RowKey", v.Rule)
		}
		if v.RowKey == "1" {
			found[v.Rule] = true
		}
	}
	if !found["medication_patient_resolves"] || !found["medication_costs_non_negative"] {
		t.Errorf("violations = %+v, want both medication rules keyed to row 1",
			res.Validation.Violations["fact_medication"])
	}
}

func TestRunTopCodesRestrictsFeatures(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.TopCodes = []string{"8867-4"}

	res, err := Run(testSources(), cfg)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Features.HasColumn("8480-6") {
		t.Error("8480-6 should be excluded by top_codes")
	}
	if !res.Features.HasColumn("8867-4") {
		t.Error("8867-4 missing from features")
	}
}

// renderTable serializes a table to a stable string for comparison.
func renderTable(t *table.Table) string {
	var b strings.Builder
	b.WriteString(strings.Join(t.ColumnNames(), ","))
	b.WriteByte('\n')
	for _, row := range t.Rows {
		for i, v := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v.Render(t.Columns[i].Type))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
