package summary

import (
	"iter"
	"strings"

	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
)

// group is one output row: the records contributing to it, per column.
type group struct {
	key     string
	members [][]record.Record
}

// partition splits the column views into rows. Rows are ordered by first
// appearance, scanning columns in order.
//
// With groupBy, records are bucketed by the scalar groupBy value.
// Without it, count and average on collection fields yield one row per
// record; everything else yields a single whole-scope row.
func partition(views []record.View, spec fieldconfig.Spec, collection bool) []*group {
	groupBy, grouped := spec.GroupBy()
	perRecord := !grouped && collection &&
		(spec.Action() == fieldconfig.Count || spec.Action() == fieldconfig.Average)

	var groups []*group
	byKey := make(map[string]*group)
	lookup := func(key string) *group {
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, members: make([][]record.Record, len(views))}
			byKey[key] = g
			groups = append(groups, g)
		}
		return g
	}

	for ci, v := range views {
		for pos, r := range v.All() {
			var key string
			switch {
			case grouped:
				key = bucketKey(r, groupBy)
			case perRecord:
				key = recordKey(r, pos)
			}
			g := lookup(key)
			g.members[ci] = append(g.members[ci], r)
		}
	}

	if len(groups) == 0 && !grouped && !perRecord {
		// Empty scope still reports one whole-scope row.
		lookup("")
	}
	return groups
}

// bucketKey returns the scalar groupBy value; absent or non-scalar values share MissingBucket.
func bucketKey(r record.Record, groupBy string) string {
	v, ok := r.Get(groupBy)
	if !ok {
		return domsum.MissingBucket
	}
	s, ok := v.Scalar()
	if !ok || s.IsNull() {
		return domsum.MissingBucket
	}
	return s.String()
}

// result is an action outcome and the number of elements it consumed.
type result struct {
	value domsum.Value
	card  int
}

func aggregate(spec fieldconfig.Spec, collection bool, records iter.Seq2[int, record.Record]) result {
	if !collection {
		return scalarResult(spec, records)
	}

	switch spec.Action() {
	case fieldconfig.Count:
		n := 0
		for _, r := range records {
			if v, ok := r.Get(spec.Field()); ok {
				n += v.Len()
			}
		}
		return result{value: domsum.NumberValue(float64(n)), card: n}

	case fieldconfig.Average:
		var sum float64
		n := 0
		for _, r := range records {
			if v, ok := r.Get(spec.Field()); ok {
				for _, f := range v.Numbers() {
					sum += f
					n++
				}
			}
		}
		if n == 0 {
			return result{value: domsum.UndefinedValue()}
		}
		return result{value: domsum.NumberValue(sum / float64(n)), card: n}

	default: // concat, string
		var elems []string
		for _, r := range records {
			if v, ok := r.Get(spec.Field()); ok {
				elems = append(elems, v.Elements()...)
			}
		}
		return result{value: domsum.TextValue(strings.Join(elems, spec.Separator())), card: len(elems)}
	}
}

// scalarResult ignores the action: one present value is returned as-is,
// several are joined with the separator.
func scalarResult(spec fieldconfig.Spec, records iter.Seq2[int, record.Record]) result {
	var present []record.Scalar
	for _, r := range records {
		if v, ok := r.Get(spec.Field()); ok {
			if s, ok := v.Scalar(); ok {
				present = append(present, s)
			}
		}
	}

	switch len(present) {
	case 0:
		return result{value: domsum.UndefinedValue()}
	case 1:
		return result{value: scalarCell(present[0]), card: 1}
	default:
		parts := make([]string, len(present))
		for i, s := range present {
			parts[i] = s.String()
		}
		return result{value: domsum.TextValue(strings.Join(parts, spec.Separator())), card: len(present)}
	}
}

func scalarCell(s record.Scalar) domsum.Value {
	if s.IsNull() {
		return domsum.UndefinedValue()
	}
	if s.IsNumber() {
		f, _ := s.Float()
		return domsum.NumberValue(f)
	}
	return domsum.TextValue(s.String())
}

// applyMetric turns an action result into the reported cell.
// Density divides by the element count of the whole column scope.
func applyMetric(m fieldconfig.Metric, r result, scopeTotal int) domsum.Value {
	switch m {
	case fieldconfig.Cardinality:
		return domsum.NumberValue(float64(r.card))
	case fieldconfig.Density:
		if scopeTotal == 0 {
			return domsum.UndefinedValue()
		}
		return domsum.NumberValue(float64(r.card) / float64(scopeTotal))
	default:
		return r.value
	}
}
