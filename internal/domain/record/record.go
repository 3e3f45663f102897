package record

import (
	"iter"
	"slices"
)

// IDField is the field carrying the record identity.
const IDField = "_id"

// Field is a named value used to assemble a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one locus-level entry (immutable value object).
// Fields keep the order in which they were declared.
type Record struct {
	fields map[string]Value
	order  []string
}

// New assembles a record. Absent values are dropped; a repeated name
// keeps its first position and its last value.
func New(fields ...Field) Record {
	r := Record{fields: make(map[string]Value, len(fields))}
	for _, f := range fields {
		r.set(f.Name, f.Value)
	}
	return r
}

func (r *Record) set(name string, v Value) {
	if v.kind == KindAbsent {
		return
	}
	if _, ok := r.fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.fields[name] = v
}

// Get returns the value of a field. A missing field yields an absent value.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// ID returns the _id value, or "" when the record has none.
func (r Record) ID() string {
	v, ok := r.fields[IDField]
	if !ok {
		return ""
	}
	s, ok := v.Scalar()
	if !ok {
		return ""
	}
	return s.String()
}

// Names returns the field names in declaration order.
func (r Record) Names() []string { return slices.Clone(r.order) }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.order) }

// View is a read-only, ordered view over records of a store.
// Views share the store's records; they never copy field data.
type View struct {
	records []Record
}

// NewView creates a view over the given records in the given order.
func NewView(records ...Record) View { return View{records: records} }

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.records) }

// At returns the i-th record.
func (v View) At(i int) Record { return v.records[i] }

// All iterates records in view order.
func (v View) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, r := range v.records {
			if !yield(i, r) {
				return
			}
		}
	}
}
