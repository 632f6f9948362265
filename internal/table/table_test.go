package table

import (
	"strings"
	"testing"
)

func sampleTable() *Table {
	t := New("dim_patient", []Column{
		{Name: "patient_id", Type: FieldText},
		{Name: "age_years", Type: FieldNumeric},
	})
	t.Append([]Value{Text("P1"), Num(40)})
	t.Append([]Value{Text("P2"), Missing})
	return t
}

func TestColLookupIsCaseInsensitive(t *testing.T) {
	tb := sampleTable()
	for _, name := range []string{"patient_id", "PATIENT_ID", "Patient_Id"} {
		if _, ok := tb.Col(name); !ok {
			t.Errorf("Col(%q) not found", name)
		}
	}
	if _, ok := tb.Col("nope"); ok {
		t.Error("Col(nope) unexpectedly found")
	}
}

func TestValueUnknownColumnIsMissing(t *testing.T) {
	tb := sampleTable()
	if v := tb.Value(0, "unknown"); v.Valid {
		t.Errorf("Value(unknown) = %+v, want sentinel", v)
	}
}

func TestAppendArityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on short row")
		}
	}()
	sampleTable().Append([]Value{Text("P3")})
}

func TestKeyIndex(t *testing.T) {
	tb := sampleTable()
	idx, err := tb.KeyIndex("patient_id")
	if err != nil {
		t.Fatalf("KeyIndex error = %v", err)
	}
	if idx["P1"] != 0 || idx["P2"] != 1 {
		t.Errorf("KeyIndex = %v", idx)
	}
}

func TestKeyIndexDuplicate(t *testing.T) {
	tb := sampleTable()
	tb.Append([]Value{Text("P1"), Num(41)})

	_, err := tb.KeyIndex("patient_id")
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !strings.Contains(err.Error(), "P1") {
		t.Errorf("error %q does not name the duplicate key", err)
	}
}

func TestKeyIndexSkipsMissingKeys(t *testing.T) {
	tb := sampleTable()
	tb.Append([]Value{Missing, Num(1)})

	idx, err := tb.KeyIndex("patient_id")
	if err != nil {
		t.Fatalf("KeyIndex error = %v", err)
	}
	if len(idx) != 2 {
		t.Errorf("indexed %d keys, want 2", len(idx))
	}
}
