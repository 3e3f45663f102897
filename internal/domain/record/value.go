package record

import (
	"errors"
	"slices"
	"strconv"
	"strings"
)

// Kind classifies the shape of a field value.
type Kind uint8

// Value kinds.
const (
	// KindAbsent marks a field missing from a record (or JSON null).
	KindAbsent Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "absent"
	}
}

// Scalar is a leaf value: string, number, bool or null.
type Scalar struct {
	text    string
	num     float64
	numeric bool
	null    bool
}

// String creates a string scalar.
func String(s string) Scalar { return Scalar{text: s} }

// Number creates a numeric scalar.
func Number(f float64) Scalar {
	return Scalar{text: strconv.FormatFloat(f, 'f', -1, 64), num: f, numeric: true}
}

// Bool creates a boolean scalar rendered as "true"/"false".
func Bool(b bool) Scalar { return Scalar{text: strconv.FormatBool(b)} }

// Null creates a null scalar rendered as an empty string.
func Null() Scalar { return Scalar{null: true} }

// numberLiteral keeps the literal text so "1.50" renders as written.
// Literals outside the float64 range stay text scalars.
func numberLiteral(lit string) (Scalar, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if errors.Is(err, strconv.ErrRange) {
		return String(lit), nil
	}
	if err != nil {
		return Scalar{}, err //nolint:wrapcheck // caller adds context
	}
	return Scalar{text: lit, num: f, numeric: true}, nil
}

// String returns the display text of the scalar.
func (s Scalar) String() string { return s.text }

// IsNumber reports whether the scalar was decoded from a JSON number.
func (s Scalar) IsNumber() bool { return s.numeric }

// IsNull reports whether the scalar is a JSON null.
func (s Scalar) IsNull() bool { return s.null }

// Float returns the numeric value. Strings holding a number parse too.
func (s Scalar) Float() (float64, bool) {
	if s.numeric {
		return s.num, true
	}
	if s.null {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Interface returns the scalar as a plain Go value (float64, string or nil).
func (s Scalar) Interface() any {
	switch {
	case s.null:
		return nil
	case s.numeric:
		return s.num
	default:
		return s.text
	}
}

// Entry is one key/value pair of a mapping value.
type Entry struct {
	Key   string
	Value Scalar
}

// Value is a field value: a scalar, an ordered sequence of scalars
// or a mapping whose key order is the source order.
type Value struct {
	kind    Kind
	scalar  Scalar
	items   []Scalar
	entries []Entry
}

// ScalarValue wraps a scalar into a field value.
func ScalarValue(s Scalar) Value { return Value{kind: KindScalar, scalar: s} }

// Sequence creates an ordered sequence value.
func Sequence(items ...Scalar) Value {
	return Value{kind: KindSequence, items: slices.Clone(items)}
}

// Mapping creates a mapping value; entries keep the given order.
func Mapping(entries ...Entry) Value {
	return Value{kind: KindMapping, entries: slices.Clone(entries)}
}

// Kind returns the value shape.
func (v Value) Kind() Kind { return v.kind }

// IsCollection reports whether the value is a sequence or a mapping.
func (v Value) IsCollection() bool { return v.kind == KindSequence || v.kind == KindMapping }

// Scalar returns the scalar held by a scalar value.
func (v Value) Scalar() (Scalar, bool) { return v.scalar, v.kind == KindScalar }

// Len returns the element count of a collection, 1 for scalars and 0 when absent.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.entries)
	case KindScalar:
		return 1
	default:
		return 0
	}
}

// Items returns a copy of the sequence elements.
func (v Value) Items() []Scalar { return slices.Clone(v.items) }

// Entries returns a copy of the mapping entries.
func (v Value) Entries() []Entry { return slices.Clone(v.entries) }

// Elements renders collection elements for concatenation.
// Sequence items render as-is, mapping entries as "key:value".
func (v Value) Elements() []string {
	switch v.kind {
	case KindSequence:
		out := make([]string, len(v.items))
		for i, it := range v.items {
			out[i] = it.String()
		}
		return out
	case KindMapping:
		out := make([]string, len(v.entries))
		for i, e := range v.entries {
			out[i] = e.Key + ":" + e.Value.String()
		}
		return out
	case KindScalar:
		return []string{v.scalar.String()}
	default:
		return nil
	}
}

// Numbers returns the numeric elements (sequence items or mapping values).
// Non-numeric elements are skipped.
func (v Value) Numbers() []float64 {
	var src []Scalar
	switch v.kind {
	case KindSequence:
		src = v.items
	case KindMapping:
		src = make([]Scalar, len(v.entries))
		for i, e := range v.entries {
			src[i] = e.Value
		}
	case KindScalar:
		src = []Scalar{v.scalar}
	}
	out := make([]float64, 0, len(src))
	for _, s := range src {
		if f, ok := s.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Text flattens the value into whitespace separated text for full-text indexing.
func (v Value) Text() string {
	switch v.kind {
	case KindScalar:
		return v.scalar.String()
	case KindSequence:
		return strings.Join(v.Elements(), " ")
	case KindMapping:
		parts := make([]string, 0, 2*len(v.entries))
		for _, e := range v.entries {
			parts = append(parts, e.Key, e.Value.String())
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Interface returns the value as plain Go data: scalars, []any for
// sequences and map[string]any for mappings.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar.Interface()
	case KindSequence:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			out[e.Key] = e.Value.Interface()
		}
		return out
	default:
		return nil
	}
}
