package clean

import (
	"testing"
	"time"

	"hospitalmart/internal/normalize"
	"hospitalmart/internal/table"
)

func testEnv() Env {
	return Env{
		ReferenceDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Vocabularies: map[string]map[string]string{
			"gender": {"m": "male", "f": "female"},
		},
	}
}

func TestRunPatients(t *testing.T) {
	spec, ok := Get("patients")
	if !ok {
		t.Fatal("patients spec not registered")
	}

	records := []normalize.RawRecord{
		{
			"id": "P1", "birthdate": "1980-06-15", "gender": "M",
			"city": "Boston", "state": "Massachusetts", "zip": "02101",
			"healthcare_expenses": "$1,250.50", "healthcare_coverage": "900",
		},
	}

	out, report := Run(spec, records, testEnv())
	if out.Name != "dim_patient" {
		t.Errorf("table name = %q", out.Name)
	}
	if report.RowsOut != 1 {
		t.Fatalf("rows out = %d, want 1", report.RowsOut)
	}

	if got := out.Value(0, "gender"); got.Text != "male" {
		t.Errorf("gender = %q, want vocabulary-mapped %q", got.Text, "male")
	}
	if got := out.Value(0, "state"); got.Text != "MA" {
		t.Errorf("state = %q, want MA", got.Text)
	}
	if got := out.Value(0, "healthcare_expenses"); got.Num != 1250.50 {
		t.Errorf("healthcare_expenses = %v, want 1250.5", got.Num)
	}

	// age_years: 1980-06-15 to 2020-01-01 is ~39.5 years
	age := out.Value(0, "age_years")
	if !age.Valid {
		t.Fatal("age_years missing")
	}
	if age.Num != 39.5 {
		t.Errorf("age_years = %v, want 39.5", age.Num)
	}
}

func TestRunDuplicateKeysLastWins(t *testing.T) {
	spec, _ := Get("patients")
	records := []normalize.RawRecord{
		{"id": "P1", "city": "Boston"},
		{"id": "P2", "city": "Salem"},
		{"id": "P1", "city": "Worcester"},
	}

	out, report := Run(spec, records, testEnv())
	if report.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", report.Duplicates)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.NumRows())
	}
	// P1 keeps its original position but carries the later record's values.
	if got := out.Value(0, "patient_id"); got.Text != "P1" {
		t.Errorf("row 0 key = %q, want P1", got.Text)
	}
	if got := out.Value(0, "city"); got.Text != "Worcester" {
		t.Errorf("city = %q, want later record to win", got.Text)
	}
}

func TestRunMissingKeyDropped(t *testing.T) {
	spec, _ := Get("patients")
	records := []normalize.RawRecord{
		{"id": "", "city": "Boston"},
		{"id": "P2"},
	}

	out, report := Run(spec, records, testEnv())
	if report.MissingKey != 1 {
		t.Errorf("missing key = %d, want 1", report.MissingKey)
	}
	if out.NumRows() != 1 {
		t.Errorf("rows = %d, want 1", out.NumRows())
	}
}

func TestRunUncoercibleBecomesSentinel(t *testing.T) {
	spec, _ := Get("patients")
	records := []normalize.RawRecord{
		{"id": "P1", "birthdate": "not a date", "healthcare_coverage": "lots"},
	}

	out, report := Run(spec, records, testEnv())
	if report.Coerced != 2 {
		t.Errorf("coerced = %d, want 2", report.Coerced)
	}
	if out.Value(0, "birthdate").Valid {
		t.Error("birthdate should be the missing sentinel")
	}
	if out.Value(0, "age_years").Valid {
		t.Error("age_years should be missing when birthdate is")
	}
}

func TestRunUnmappedCodePassesThrough(t *testing.T) {
	spec, _ := Get("patients")
	records := []normalize.RawRecord{
		{"id": "P1", "gender": "X"},
	}

	out, report := Run(spec, records, testEnv())
	if got := out.Value(0, "gender"); got.Text != "X" {
		t.Errorf("gender = %q, want unmapped code passed through", got.Text)
	}
	if report.UnmappedCodes["X"] != 1 {
		t.Errorf("UnmappedCodes = %v, want X counted", report.UnmappedCodes)
	}
	if list := report.UnmappedCodeList(); len(list) != 1 || list[0] != "X" {
		t.Errorf("UnmappedCodeList = %v", list)
	}
}

func TestRunMedicationsSyntheticKey(t *testing.T) {
	spec, _ := Get("medications")
	records := []normalize.RawRecord{
		{"patient": "P1", "code": "860975"},
		{"patient": "P2", "code": "860975"},
	}

	out, report := Run(spec, records, testEnv())
	if report.RowsOut != 2 {
		t.Fatalf("rows out = %d, want 2", report.RowsOut)
	}
	if got := out.Value(0, "medication_id"); !got.Valid || got.Num != 0 {
		t.Errorf("row 0 medication_id = %+v, want 0", got)
	}
	if got := out.Value(1, "medication_id"); !got.Valid || got.Num != 1 {
		t.Errorf("row 1 medication_id = %+v, want 1", got)
	}
}

func TestRunEncounterLengthOfStay(t *testing.T) {
	spec, _ := Get("encounters")
	records := []normalize.RawRecord{
		{"id": "E1", "start": "2019-05-14T08:00:00Z", "stop": "2019-05-14T20:30:00Z"},
		{"id": "E2", "start": "2019-05-14T08:00:00Z"},
	}

	out, _ := Run(spec, records, testEnv())
	if got := out.Value(0, "length_of_stay_hours"); got.Num != 12.5 {
		t.Errorf("length_of_stay_hours = %v, want 12.5", got.Num)
	}
	if out.Value(1, "length_of_stay_hours").Valid {
		t.Error("length_of_stay_hours should be missing without stop")
	}
}

func TestRegistryHasAllEntities(t *testing.T) {
	if got := EntityCount(); got != 6 {
		t.Errorf("EntityCount = %d, want 6", got)
	}
	specs := All()
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Entity >= specs[i].Entity {
			t.Errorf("All() not sorted: %s before %s", specs[i-1].Entity, specs[i].Entity)
		}
	}
}

func TestNormalizeUsState(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Massachusetts", "MA"},
		{"massachusetts", "MA"},
		{"MA", "MA"},
		{"ma", "MA"},
		{"Elbonia", "Elbonia"},
	}
	for _, tt := range tests {
		if got := NormalizeUsState(tt.in); got != tt.want {
			t.Errorf("NormalizeUsState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColumnsIncludeDerived(t *testing.T) {
	spec, _ := Get("patients")
	cols := spec.Columns()
	last := cols[len(cols)-1]
	if last.Name != "age_years" || last.Type != table.FieldNumeric {
		t.Errorf("last column = %+v, want age_years numeric", last)
	}
}
