package fieldconfig

// Action is how a collection-valued field is aggregated.
type Action string

// Action constants.
const (
	Concat  Action = "concat"
	Count   Action = "count"
	Average Action = "average"
	// String displays the raw scalar; used by node fields.
	String Action = "string"
)

// IsValid checks if the action is one of the supported values.
func (a Action) IsValid() bool {
	return a == Concat || a == Count || a == Average || a == String
}

// Metric is how an action's result is reported.
type Metric string

// Metric constants.
const (
	// Raw reports the action result unmodified.
	Raw Metric = "raw"
	// Cardinality reports the number of elements the action consumed.
	Cardinality Metric = "count"
	// Density reports the cardinality as a share of the whole scope.
	Density Metric = "density"
)

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Raw || m == Cardinality || m == Density
}

// Scope selects the record subset a field is summarized over.
type Scope string

// Scope constants.
const (
	All       Scope = "all"
	Displayed Scope = "displayed"
	Both      Scope = "both"
)

// IsValid checks if the scope is one of the supported values.
func (s Scope) IsValid() bool {
	return s == All || s == Displayed || s == Both
}

// Columns expands a scope into the concrete scopes it reports, in column order.
func (s Scope) Columns() []Scope {
	switch s {
	case Both:
		return []Scope{All, Displayed}
	case All, Displayed:
		return []Scope{s}
	default:
		return nil
	}
}
