package table

// value.go provides the Value type and string-to-value coercion functions.
//
// These functions handle the messy reality of exported hospital data:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Timezone-aware and naive timestamps
//   - Currency symbols and thousand separators in numbers
//   - Excel formula prefixes (="value")
//   - Common CSV artifacts (BOM, weird quotes)
//
// All To* functions return Values with Valid=false for empty/uncoercible
// input. An invalid Value is the missing sentinel: distinct from zero and
// from the empty string, and rendered as empty on output.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot and TwoDigitYearAnchor define how 2-digit years are
// interpreted: parsed years more than TwoDigitYearPivot years after the
// anchor are assumed to be in the previous century. The anchor is a fixed
// year, not the wall clock, so identical inputs coerce identically no
// matter when the process runs.
var (
	TwoDigitYearPivot  = 20
	TwoDigitYearAnchor = 2020
)

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	dateTimeLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// Value is a single typed cell. Valid=false is the missing sentinel.
// Which of Text, Num, Time carries the payload is determined by the
// column's FieldType: Text for FieldText/FieldCode, Num for FieldNumeric,
// Time for FieldDate/FieldDateTime.
type Value struct {
	Text  string
	Num   float64
	Time  time.Time
	Valid bool
}

// Missing is the missing sentinel.
var Missing = Value{}

// Text returns a valid text value, or the missing sentinel for empty input.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Text: s, Valid: true}
}

// Num returns a valid numeric value.
func Num(f float64) Value {
	return Value{Num: f, Valid: true}
}

// Timestamp returns a valid time value (UTC-normalized for determinism).
func Timestamp(t time.Time) Value {
	return Value{Time: t.UTC(), Valid: true}
}

// ToText coerces a string to a text value.
// Returns the sentinel if the string is empty or only whitespace.
func ToText(s string) Value {
	return Text(strings.TrimSpace(s))
}

// ToDate coerces a string to a date value.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToDate(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp(t)
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := TwoDigitYearAnchor + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return Timestamp(t)
		}
	}

	return Value{}
}

// ToDateTime coerces a string to a timestamp value. Falls back to plain
// date layouts for sources that export midnight timestamps as bare dates.
func ToDateTime(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}

	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp(t)
		}
	}

	return ToDate(s)
}

// ToNumeric coerces a string to a numeric value.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ToNumeric(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return Value{}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}
	}

	return Num(f)
}

// Coerce converts a raw string to a Value of the given field type.
func Coerce(raw string, ft FieldType) Value {
	switch ft {
	case FieldDate:
		return ToDate(raw)
	case FieldDateTime:
		return ToDateTime(raw)
	case FieldNumeric:
		return ToNumeric(raw)
	default:
		return ToText(raw)
	}
}

// Render formats a value for serialization under the given field type.
// The missing sentinel renders as the empty string. Rendering is
// deterministic: identical values always produce identical bytes.
func (v Value) Render(ft FieldType) string {
	if !v.Valid {
		return ""
	}
	switch ft {
	case FieldDate:
		return v.Time.Format("2006-01-02")
	case FieldDateTime:
		return v.Time.Format(time.RFC3339)
	case FieldNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Text
	}
}

// CleanCell removes common CSV artifacts from a cell value:
//   - trims whitespace
//   - removes Excel formula prefix (="...")
//   - removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
