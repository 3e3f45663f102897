package summary

import (
	"strconv"

	"github.com/kailas-cloud/locusmap/internal/domain"
	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
)

// Scope holds the record subsets a summary runs over.
// Both views are read-only views into the record store.
type Scope struct {
	All       record.View
	Displayed record.View
	// NDisplayed overrides the count reported by the nDisplayed pseudo-field.
	NDisplayed *int
}

func (s Scope) view(col fieldconfig.Scope) record.View {
	if col == fieldconfig.Displayed {
		return s.Displayed
	}
	return s.All
}

func (s Scope) displayedCount() int {
	if s.NDisplayed != nil {
		return *s.NDisplayed
	}
	return s.Displayed.Len()
}

// Engine computes field summaries for one validated field configuration.
// It is stateless and safe for concurrent use.
type Engine struct {
	cfg *fieldconfig.Config
}

// New creates an Engine.
func New(cfg *fieldconfig.Config) *Engine {
	return &Engine{cfg: cfg}
}

// SummarizeAll summarizes every configured field in display order.
func (e *Engine) SummarizeAll(scope Scope) ([]domsum.Table, error) {
	specs := e.cfg.Specs()
	out := make([]domsum.Table, 0, len(specs))
	for _, spec := range specs {
		t, err := e.Summarize(scope, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Node summarizes a node metadata record: every field is computed over
// that single record, and nDisplayed reports the given count.
func (e *Engine) Node(node record.Record, nDisplayed int) ([]domsum.Table, error) {
	v := record.NewView(node)
	return e.SummarizeAll(Scope{All: v, Displayed: v, NDisplayed: &nDisplayed})
}

// Summarize computes the table of one field spec.
func (e *Engine) Summarize(scope Scope, spec fieldconfig.Spec) (domsum.Table, error) {
	if err := checkSpec(spec); err != nil {
		return domsum.Table{}, err
	}

	label := e.cfg.LabelFor(spec.Field())
	cols := spec.From().Columns()
	t := domsum.Table{
		Field:   spec.Field(),
		Title:   spec.Title(),
		Label:   label,
		Action:  spec.Action(),
		Metric:  spec.Metric(),
		Columns: cols,
	}
	if t.Title == "" {
		t.Title = label
	}
	if g, ok := spec.GroupBy(); ok {
		t.GroupBy = g
	}

	if spec.Field() == fieldconfig.NDisplayed {
		return nDisplayedTable(t, spec, scope), nil
	}

	views := make([]record.View, len(cols))
	for i, c := range cols {
		views[i] = scope.view(c)
	}

	// Decided over the whole store so the table shape never depends on
	// which records happen to be displayed.
	collection := isCollectionField([]record.View{scope.All, scope.Displayed}, spec.Field())
	if collection {
		switch spec.Action() {
		case fieldconfig.Count:
			t.Label += " count"
		case fieldconfig.Average:
			t.Label += " average"
		}
	}

	totals := make([]int, len(views))
	for i, v := range views {
		totals[i] = aggregate(spec, collection, v.All()).card
	}

	groups := partition(views, spec, collection)
	t.Rows = make([]domsum.Row, 0, len(groups))
	for _, g := range groups {
		row := domsum.Row{
			Key:    g.key,
			Label:  t.Label,
			Values: make([]domsum.Value, len(views)),
			Sizes:  make([]int, len(views)),
		}
		for ci := range views {
			members := record.NewView(g.members[ci]...)
			a := aggregate(spec, collection, members.All())
			row.Values[ci] = applyMetric(spec.Metric(), a, totals[ci])
			row.Sizes[ci] = members.Len()
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// checkSpec fails fast on specs that bypassed validation.
func checkSpec(spec fieldconfig.Spec) error {
	if !spec.Action().IsValid() {
		return domain.NewConfigError(spec.Field(), "invalid action %q", spec.Action())
	}
	if !spec.Metric().IsValid() {
		return domain.NewConfigError(spec.Field(), "invalid metric %q", spec.Metric())
	}
	if !spec.From().IsValid() {
		return domain.NewConfigError(spec.Field(), "invalid from %q", spec.From())
	}
	return nil
}

// nDisplayedTable always carries the fixed NDisplayedLabel; configured
// labels do not apply to the pseudo-field.
func nDisplayedTable(t domsum.Table, spec fieldconfig.Spec, scope Scope) domsum.Table {
	n := scope.displayedCount()
	t.Label = fieldconfig.NDisplayedLabel
	if spec.Title() == "" {
		t.Title = fieldconfig.NDisplayedLabel
	}
	row := domsum.Row{
		Label:  t.Label,
		Values: make([]domsum.Value, len(t.Columns)),
		Sizes:  make([]int, len(t.Columns)),
	}
	for i := range t.Columns {
		row.Values[i] = domsum.NumberValue(float64(n))
		row.Sizes[i] = n
	}
	t.Rows = []domsum.Row{row}
	return t
}

func isCollectionField(views []record.View, field string) bool {
	for _, v := range views {
		for _, r := range v.All() {
			if val, ok := r.Get(field); ok && val.IsCollection() {
				return true
			}
		}
	}
	return false
}

func recordKey(r record.Record, pos int) string {
	if id := r.ID(); id != "" {
		return id
	}
	return strconv.Itoa(pos)
}
