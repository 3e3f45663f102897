package locusmap

import (
	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
)

// Field describes how one field is summarized.
type Field struct {
	Name      string
	Action    string // concat, count, average, string
	Metric    string // raw, count, density
	From      string // all, displayed, both
	GroupBy   string // optional field to bucket records by
	Title     string
	Separator string
}

// FieldSet is an ordered field configuration.
type FieldSet struct {
	Fields    []Field
	Order     []string
	Labels    map[string]string
	Separator string
}

func (fs FieldSet) definition() fieldconfig.Definition {
	def := fieldconfig.Definition{
		Order:     fs.Order,
		Labels:    fs.Labels,
		Separator: fs.Separator,
		Fields:    make([]fieldconfig.FieldDefinition, len(fs.Fields)),
	}
	for i, f := range fs.Fields {
		fd := fieldconfig.FieldDefinition{
			Field:     f.Name,
			Action:    f.Action,
			Metric:    f.Metric,
			From:      f.From,
			Title:     f.Title,
			Separator: f.Separator,
		}
		if f.GroupBy != "" {
			fd.GroupBy = []string{f.GroupBy}
		}
		def.Fields[i] = fd
	}
	return def
}

// Summary tables share the engine's types.
type (
	Table = domsum.Table
	Row   = domsum.Row
	Value = domsum.Value
)

// Hit is one search result.
type Hit struct {
	ID    string
	Score float64
}

// IndexStatus reports the search index lifecycle.
type IndexStatus struct {
	State     string // absent, loading, building, ready
	Source    string // cache or build, once ready
	Documents int
	Err       error
}
