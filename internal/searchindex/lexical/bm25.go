// Package lexical implements an in-memory BM25 search index that serializes to JSON.
package lexical

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/kailas-cloud/locusmap/internal/domain/record"
	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	Doc   int `json:"d"`
	Count int `json:"c"`
}

// fieldIndex holds the inverted index of one record field.
type fieldIndex struct {
	Postings map[string][]posting `json:"postings"`
	Lengths  []int                `json:"lengths"`
	Total    int64                `json:"total"`

	terms []string // sorted keys of Postings
}

func newFieldIndex(docs int) *fieldIndex {
	return &fieldIndex{
		Postings: make(map[string][]posting),
		Lengths:  make([]int, docs),
	}
}

func (f *fieldIndex) add(doc int, text string) {
	tokens := searchindex.Tokenize(text)
	f.Lengths[doc] = len(tokens)
	f.Total += int64(len(tokens))

	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}
	for t, count := range tf {
		f.Postings[t] = append(f.Postings[t], posting{Doc: doc, Count: count})
	}
}

func (f *fieldIndex) seal() {
	f.terms = make([]string, 0, len(f.Postings))
	for t, ps := range f.Postings {
		slices.SortFunc(ps, func(a, b posting) int { return a.Doc - b.Doc })
		f.terms = append(f.terms, t)
	}
	slices.Sort(f.terms)
}

// expand returns the indexed terms matched by a query term.
func (f *fieldIndex) expand(term searchindex.Term) []string {
	if !term.Prefix {
		if _, ok := f.Postings[term.Text]; ok {
			return []string{term.Text}
		}
		return nil
	}
	i, _ := slices.BinarySearch(f.terms, term.Text)
	var out []string
	for ; i < len(f.terms) && strings.HasPrefix(f.terms[i], term.Text); i++ {
		out = append(out, f.terms[i])
	}
	return out
}

// Index is a BM25 index over a fixed set of record fields.
type Index struct {
	fields []string
	refs   []string
	byName map[string]*fieldIndex
}

var _ searchindex.Index = (*Index)(nil)

func build(docs []searchindex.Document, fields []string) *Index {
	idx := &Index{
		fields: slices.Clone(fields),
		refs:   make([]string, len(docs)),
		byName: make(map[string]*fieldIndex, len(fields)),
	}
	for _, f := range fields {
		idx.byName[f] = newFieldIndex(len(docs))
	}
	for i, d := range docs {
		idx.refs[i] = d.ID
		for f, text := range d.Fields {
			if fi, ok := idx.byName[f]; ok {
				fi.add(i, text)
			}
		}
	}
	for _, fi := range idx.byName {
		fi.seal()
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.refs) }

// Close is a no-op.
func (idx *Index) Close() error { return nil }

// Search scores documents with BM25 summed over matched fields and terms.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]searchindex.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error passthrough
	}

	terms := searchindex.ParseQuery(query, idx.fields)
	if len(terms) == 0 || len(idx.refs) == 0 {
		return []searchindex.Hit{}, nil
	}

	scores := make(map[int]float64)
	for _, term := range terms {
		fields := idx.fields
		if term.Field != "" {
			fields = []string{term.Field}
		}
		for _, name := range fields {
			idx.scoreField(idx.byName[name], term, scores)
		}
	}

	hits := make([]searchindex.Hit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, searchindex.Hit{ID: idx.refs[doc], Score: score})
	}
	return searchindex.SortHits(hits, limit), nil
}

func (idx *Index) scoreField(f *fieldIndex, term searchindex.Term, scores map[int]float64) {
	if f == nil || f.Total == 0 {
		return
	}
	n := float64(len(idx.refs))
	avgDL := float64(f.Total) / n

	for _, t := range f.expand(term) {
		postings := f.Postings[t]
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		for _, p := range postings {
			tf := float64(p.Count)
			docLen := float64(f.Lengths[p.Doc])
			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[p.Doc] += idf * (num / denom)
		}
	}
}

// Fields returns the indexed field names.
func (idx *Index) Fields() []string { return slices.Clone(idx.fields) }

// Engine builds lexical indexes.
type Engine struct {
	fields []string
}

var _ searchindex.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithFields overrides the indexed fields.
func WithFields(fields ...string) Option {
	return func(e *Engine) { e.fields = slices.Clone(fields) }
}

// New creates a lexical Engine.
func New(opts ...Option) *Engine {
	e := &Engine{fields: slices.Clone(searchindex.DefaultFields)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name recorded in serialized indexes.
func (e *Engine) Name() string { return EngineName }

// Build indexes the given records.
func (e *Engine) Build(ctx context.Context, records record.View) (searchindex.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error passthrough
	}
	return build(searchindex.Documents(records, e.fields), e.fields), nil
}
