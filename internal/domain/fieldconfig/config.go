package fieldconfig

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/locusmap/internal/domain"
)

// FieldDefinition is the unvalidated, caller-owned form of a Spec.
type FieldDefinition struct {
	Field     string
	Action    string
	Metric    string
	From      string
	GroupBy   []string
	Title     string
	Separator string
}

// Definition is the unvalidated, caller-owned form of a Config.
type Definition struct {
	Fields    []FieldDefinition
	Order     []string
	Separator string
	Labels    map[string]string
}

// Config is a validated, read-only field configuration.
type Config struct {
	specs     []Spec
	index     map[string]int
	order     []string
	labels    map[string]string
	separator string
}

// Validate checks a definition and builds the configuration.
// Unknown actions, metrics or scopes, more than one groupBy, duplicate fields,
// and order or label entries naming undeclared fields are ConfigErrors.
func Validate(def Definition) (*Config, error) {
	sep := def.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	c := &Config{
		specs:     make([]Spec, 0, len(def.Fields)),
		index:     make(map[string]int, len(def.Fields)),
		labels:    make(map[string]string, len(def.Labels)),
		separator: sep,
	}

	for _, fd := range def.Fields {
		s, err := NewSpec(fd.Field, Action(fd.Action), Metric(fd.Metric), Scope(fd.From),
			fd.GroupBy, fd.Title, fd.Separator)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[s.Field()]; dup {
			return nil, domain.NewConfigError(s.Field(), "declared more than once")
		}
		c.index[s.Field()] = len(c.specs)
		c.specs = append(c.specs, s.withSeparator(sep))
	}

	ordered := make(map[string]bool, len(def.Order))
	for _, name := range def.Order {
		if _, ok := c.index[name]; !ok {
			return nil, domain.NewConfigError(name, "order references an undeclared field")
		}
		if ordered[name] {
			return nil, domain.NewConfigError(name, "listed twice in order")
		}
		ordered[name] = true
		c.order = append(c.order, name)
	}
	for _, s := range c.specs {
		if !ordered[s.Field()] {
			c.order = append(c.order, s.Field())
		}
	}

	for _, name := range slices.Sorted(maps.Keys(def.Labels)) {
		if _, ok := c.index[name]; !ok {
			return nil, domain.NewConfigError(name, "label references an undeclared field")
		}
		c.labels[name] = def.Labels[name]
	}

	return c, nil
}

// LabelFor returns the configured label of a field, defaulting to the field name.
func (c *Config) LabelFor(field string) string {
	if l, ok := c.labels[field]; ok && l != "" {
		return l
	}
	return field
}

// OrderedFields returns the display order: explicitly ordered fields first,
// then the rest in declaration order.
func (c *Config) OrderedFields() []string { return slices.Clone(c.order) }

// Specs returns the field specs in display order.
func (c *Config) Specs() []Spec {
	out := make([]Spec, len(c.order))
	for i, name := range c.order {
		out[i] = c.specs[c.index[name]]
	}
	return out
}

// Spec returns the spec of a field.
func (c *Config) Spec(field string) (Spec, bool) {
	i, ok := c.index[field]
	if !ok {
		return Spec{}, false
	}
	return c.specs[i], true
}

// Separator returns the default concatenation separator.
func (c *Config) Separator() string { return c.separator }

// Len returns the number of declared fields.
func (c *Config) Len() int { return len(c.specs) }
