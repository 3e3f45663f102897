package summary

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
)

// MissingBucket labels records whose groupBy value is absent.
const MissingBucket = "<missing>"

// ValueKind distinguishes summary cell values.
type ValueKind uint8

// Value kinds.
const (
	// Undefined marks a value that cannot be computed (empty average, zero denominator).
	Undefined ValueKind = iota
	Number
	Text
)

// Value is one computed summary cell.
type Value struct {
	kind ValueKind
	num  float64
	text string
}

// NumberValue creates a numeric cell. NaN and infinities become Undefined.
func NumberValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: Number, num: f}
}

// TextValue creates a text cell.
func TextValue(s string) Value { return Value{kind: Text, text: s} }

// UndefinedValue creates an undefined cell.
func UndefinedValue() Value { return Value{} }

// Kind returns the cell kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsDefined reports whether the cell carries a value.
func (v Value) IsDefined() bool { return v.kind != Undefined }

// Float returns the numeric value; Undefined yields NaN.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case Text:
		f, err := strconv.ParseFloat(v.text, 64)
		return f, err == nil
	default:
		return math.NaN(), false
	}
}

// String renders the cell for display. Undefined renders as "".
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON renders numbers as JSON numbers, text as strings and Undefined as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case Text:
		return json.Marshal(v.text) //nolint:wrapcheck // plain string encoding
	default:
		return []byte("null"), nil
	}
}

// Row is one line of a summary table: a bucket, a record, or the whole scope.
// Key is the bucket value, the record _id, or "" for a whole-scope row.
// Sizes holds, per column, how many records contributed to the row.
type Row struct {
	Key    string  `json:"key,omitempty"`
	Label  string  `json:"label"`
	Values []Value `json:"values"`
	Sizes  []int   `json:"sizes"`
}

// Table is the summary of one field.
type Table struct {
	Field   string              `json:"field"`
	Title   string              `json:"title"`
	Label   string              `json:"label"`
	Action  fieldconfig.Action  `json:"action"`
	Metric  fieldconfig.Metric  `json:"metric"`
	GroupBy string              `json:"group_by,omitempty"`
	Columns []fieldconfig.Scope `json:"columns"`
	Rows    []Row               `json:"rows"`
}

// Value returns the cell of a row in the given column.
func (t Table) Value(row int, col fieldconfig.Scope) (Value, bool) {
	if row < 0 || row >= len(t.Rows) {
		return Value{}, false
	}
	for i, c := range t.Columns {
		if c == col {
			return t.Rows[row].Values[i], true
		}
	}
	return Value{}, false
}

// ByKey returns the row with the given key.
func (t Table) ByKey(key string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return Row{}, false
}
