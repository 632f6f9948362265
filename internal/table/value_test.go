package table

import (
	"testing"
	"time"
)

func TestToDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // YYYY-MM-DD, empty means sentinel
	}{
		{"iso", "2019-05-14", "2019-05-14"},
		{"us slashes", "5/14/2019", "2019-05-14"},
		{"us padded", "05/14/2019", "2019-05-14"},
		{"dots", "14.5.2019", ""}, // EU day-first is ambiguous, parses month-first or fails
		{"compact", "20190514", "2019-05-14"},
		{"month name", "May 14, 2019", "2019-05-14"},
		{"two digit year past", "5/14/19", "2019-05-14"},
		{"two digit year pivots back", "5/14/99", "1999-05-14"},
		{"whitespace", "  2019-05-14  ", "2019-05-14"},
		{"empty", "", ""},
		{"garbage", "not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDate(tt.input)
			if tt.want == "" {
				if got.Valid {
					t.Errorf("ToDate(%q) = %v, want sentinel", tt.input, got.Time)
				}
				return
			}
			if !got.Valid {
				t.Fatalf("ToDate(%q) = sentinel, want %s", tt.input, tt.want)
			}
			if rendered := got.Render(FieldDate); rendered != tt.want {
				t.Errorf("ToDate(%q) = %s, want %s", tt.input, rendered, tt.want)
			}
		})
	}
}

func TestToDateTwoDigitYearPivotIsFixed(t *testing.T) {
	// The pivot anchors on TwoDigitYearAnchor, never the wall clock, so these
	// coercions hold whenever the tests run.
	tests := []struct {
		input string
		want  string
	}{
		{"5/14/39", "2039-05-14"}, // within anchor+pivot window
		{"5/14/45", "1945-05-14"}, // past the window, previous century
	}
	for _, tt := range tests {
		got := ToDate(tt.input)
		if !got.Valid {
			t.Fatalf("ToDate(%q) = sentinel, want %s", tt.input, tt.want)
		}
		if rendered := got.Render(FieldDate); rendered != tt.want {
			t.Errorf("ToDate(%q) = %s, want %s", tt.input, rendered, tt.want)
		}
	}
}

func TestToDateTimeNormalizesToUTC(t *testing.T) {
	got := ToDateTime("2019-05-14T10:30:00+02:00")
	if !got.Valid {
		t.Fatal("expected valid timestamp")
	}
	want := time.Date(2019, 5, 14, 8, 30, 0, 0, time.UTC)
	if !got.Time.Equal(want) {
		t.Errorf("ToDateTime = %v, want %v", got.Time, want)
	}
	if got.Time.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Time.Location())
	}
}

func TestToDateTimeFallsBackToDate(t *testing.T) {
	got := ToDateTime("2019-05-14")
	if !got.Valid {
		t.Fatal("expected valid timestamp for bare date")
	}
	if got.Render(FieldDate) != "2019-05-14" {
		t.Errorf("fallback date = %s, want 2019-05-14", got.Render(FieldDate))
	}
}

func TestToNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		valid bool
	}{
		{"plain", "123.45", 123.45, true},
		{"integer", "42", 42, true},
		{"currency", "$1,234.50", 1234.50, true},
		{"euro", "€99", 99, true},
		{"accounting negative", "(12.5)", -12.5, true},
		{"scientific", "1.5e3", 1500, true},
		{"leading plus", "+7", 7, true},
		{"empty", "", 0, false},
		{"text", "abc", 0, false},
		{"mixed", "12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumeric(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ToNumeric(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
			if tt.valid && got.Num != tt.want {
				t.Errorf("ToNumeric(%q) = %v, want %v", tt.input, got.Num, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"whitespace", "  hello  ", "hello"},
		{"excel formula", `="P123"`, "P123"},
		{"bare equals", "=42", "42"},
		{"quoted", `"quoted"`, "quoted"},
		{"single quoted", "'quoted'", "quoted"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderMissing(t *testing.T) {
	for _, ft := range []FieldType{FieldText, FieldCode, FieldDate, FieldDateTime, FieldNumeric} {
		if got := Missing.Render(ft); got != "" {
			t.Errorf("Missing.Render(%s) = %q, want empty", TypeName(ft), got)
		}
	}
}

func TestRenderNumericIsStable(t *testing.T) {
	v := Num(98.6)
	if got := v.Render(FieldNumeric); got != "98.6" {
		t.Errorf("Render = %q, want 98.6", got)
	}
	if got := Num(120).Render(FieldNumeric); got != "120" {
		t.Errorf("Render = %q, want 120", got)
	}
}

func TestCoerce(t *testing.T) {
	if v := Coerce("2020-01-01", FieldDate); !v.Valid {
		t.Error("Coerce date failed")
	}
	if v := Coerce("bad", FieldNumeric); v.Valid {
		t.Error("Coerce numeric accepted garbage")
	}
	if v := Coerce("code", FieldCode); !v.Valid || v.Text != "code" {
		t.Errorf("Coerce code = %+v", v)
	}
}
