package fieldconfig

import (
	"github.com/kailas-cloud/locusmap/internal/domain"
)

// NDisplayed is the pseudo-field that reports the number of displayed records.
const NDisplayed = "nDisplayed"

// NDisplayedLabel is the fixed label of the NDisplayed pseudo-field.
const NDisplayedLabel = "Rows Displayed"

// DefaultSeparator joins concatenated values when nothing else is configured.
const DefaultSeparator = ","

// Spec declares how one field is summarized (immutable value object).
type Spec struct {
	field     string
	action    Action
	metric    Metric
	from      Scope
	groupBy   string
	title     string
	separator string
}

// NewSpec validates and creates a Spec.
// groupBy holds at most one field name; separator "" means "use the configuration default".
func NewSpec(field string, action Action, metric Metric, from Scope, groupBy []string, title, separator string) (Spec, error) {
	if field == "" {
		return Spec{}, domain.NewConfigError("", "field name is required")
	}
	if !action.IsValid() {
		return Spec{}, domain.NewConfigError(field, "invalid action %q", action)
	}
	if !metric.IsValid() {
		return Spec{}, domain.NewConfigError(field, "invalid metric %q", metric)
	}
	if !from.IsValid() {
		return Spec{}, domain.NewConfigError(field, "invalid from %q", from)
	}
	if len(groupBy) > 1 {
		return Spec{}, domain.NewConfigError(field, "only one groupBy is allowed, got %d", len(groupBy))
	}

	s := Spec{
		field:     field,
		action:    action,
		metric:    metric,
		from:      from,
		title:     title,
		separator: separator,
	}
	if len(groupBy) == 1 {
		if groupBy[0] == "" {
			return Spec{}, domain.NewConfigError(field, "groupBy must name a field")
		}
		if groupBy[0] == field {
			return Spec{}, domain.NewConfigError(field, "field cannot be grouped by itself")
		}
		s.groupBy = groupBy[0]
	}
	return s, nil
}

// Field returns the summarized field name.
func (s Spec) Field() string { return s.field }

// Action returns the aggregation action.
func (s Spec) Action() Action { return s.action }

// Metric returns the reported metric.
func (s Spec) Metric() Metric { return s.metric }

// From returns the scope the field is summarized over.
func (s Spec) From() Scope { return s.from }

// GroupBy returns the bucketing field, if any.
func (s Spec) GroupBy() (string, bool) { return s.groupBy, s.groupBy != "" }

// Title returns the display title ("" when not configured).
func (s Spec) Title() string { return s.title }

// Separator returns the concatenation separator.
func (s Spec) Separator() string { return s.separator }

func (s Spec) withSeparator(sep string) Spec {
	if s.separator == "" {
		s.separator = sep
	}
	return s
}
