package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"hospitalmart/internal/pipeline"
	"hospitalmart/internal/table"
)

func sampleTable() *table.Table {
	t := table.New("dim_patient", []table.Column{
		{Name: "patient_id", Type: table.FieldText},
		{Name: "birthdate", Type: table.FieldDate},
		{Name: "age_years", Type: table.FieldNumeric},
	})
	t.Append([]table.Value{table.Text("P1"), table.ToDate("1980-06-15"), table.Num(39.5)})
	t.Append([]table.Value{table.Text("P2"), table.Missing, table.Missing})
	return t
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(dir, sampleTable())
	if err != nil {
		t.Fatalf("WriteCSV error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "patient_id,birthdate,age_years\nP1,1980-06-15,39.5\nP2,,\n"
	if string(data) != want {
		t.Errorf("csv = %q, want %q", data, want)
	}
}

func TestWriteCSVDeterministic(t *testing.T) {
	dir := t.TempDir()
	tb := sampleTable()

	path, err := WriteCSV(dir, tb)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	if _, err := WriteCSV(dir, tb); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Error("repeated writes produced different bytes")
	}
}

func TestWriteParquetSchema(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteParquet(dir, sampleTable())
	if err != nil {
		t.Fatalf("WriteParquet error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	if pf.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", pf.NumRows())
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, fld := range fields {
		names[i] = fld.Name()
	}
	for _, want := range []string{"patient_id", "birthdate", "age_years"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("schema missing column %q (have %v)", want, names)
		}
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "processed")
	res := &pipeline.Result{
		RunID:  "test-run",
		Tables: map[string]*table.Table{"dim_patient": sampleTable()},
	}

	if err := WriteAll(dir, res, true); err != nil {
		t.Fatalf("WriteAll error = %v", err)
	}

	for _, name := range []string{"dim_patient.csv", "dim_patient.parquet", "run_report.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "run_report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("run report not valid JSON: %v", err)
	}
	if report.RunID != "test-run" {
		t.Errorf("run_id = %q", report.RunID)
	}
	if report.Tables["dim_patient"] != 2 {
		t.Errorf("table counts = %v", report.Tables)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("run report should end with a newline")
	}
}
