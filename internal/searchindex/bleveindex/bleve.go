// Package bleveindex implements the search index on a bleve scorch index.
// Serialized indexes are zstd-compressed tar archives of the index directory.
package bleveindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/locusmap/internal/domain/record"
	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const (
	// EngineName identifies bleve index archives.
	EngineName = "bleve"

	analyzerName = "locusmap"
	batchSize    = 500
)

// Engine builds bleve indexes in temporary directories.
type Engine struct {
	fields []string
	tmpDir string
}

var _ searchindex.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithFields overrides the indexed fields.
func WithFields(fields ...string) Option {
	return func(e *Engine) { e.fields = slices.Clone(fields) }
}

// WithTempDir sets the parent directory for index directories. Defaults to os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tmpDir = dir }
}

// New creates a bleve Engine.
func New(opts ...Option) *Engine {
	e := &Engine{fields: slices.Clone(searchindex.DefaultFields)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name recorded in archives.
func (e *Engine) Name() string { return EngineName }

// Build indexes the records into a fresh directory and reopens it read-only.
func (e *Engine) Build(ctx context.Context, records record.View) (searchindex.Index, error) {
	im, err := indexMapping(e.fields)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(e.tmpDir, "locusmap-bleve-*")
	if err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	path := filepath.Join(dir, "index")

	if err := writeIndex(ctx, path, im, searchindex.Documents(records, e.fields)); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return open(dir, path, e.fields)
}

func writeIndex(ctx context.Context, path string, im mapping.IndexMapping, docs []searchindex.Document) error {
	idx, err := bleve.New(path, im)
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return err //nolint:wrapcheck // context error passthrough
		}
		fields := make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			fields[k] = v
		}
		if err := batch.Index(d.ID, fields); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %q: %w", d.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := idx.Batch(batch); err != nil {
				_ = idx.Close()
				return fmt.Errorf("flush batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			_ = idx.Close()
			return fmt.Errorf("flush batch: %w", err)
		}
	}
	if err := idx.Close(); err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	return nil
}

// indexMapping maps each indexed field as text analyzed with a unicode
// tokenizer and lowercasing, matching searchindex.Tokenize.
func indexMapping(fields []string) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []any{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("register analyzer: %w", err)
	}
	im.DefaultAnalyzer = analyzerName

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range fields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		doc.AddFieldMappingsAt(f, fm)
	}
	im.DefaultMapping = doc
	return im, nil
}

// Index is a read-only bleve index owning its directory.
type Index struct {
	dir    string
	fields []string
	idx    bleve.Index
	count  int
}

var _ searchindex.Index = (*Index)(nil)

func open(dir, path string, fields []string) (*Index, error) {
	idx, err := bleve.OpenUsing(path, map[string]any{"read_only": true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	n, err := idx.DocCount()
	if err != nil {
		_ = idx.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("count documents: %w", err)
	}
	return &Index{dir: dir, fields: slices.Clone(fields), idx: idx, count: int(n)}, nil
}

// Len returns the number of indexed documents.
func (i *Index) Len() int { return i.count }

// Close closes the index and removes its directory.
func (i *Index) Close() error {
	err := i.idx.Close()
	if rmErr := os.RemoveAll(i.dir); err == nil && rmErr != nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	return nil
}

// Search runs the query as a disjunction of term and prefix queries.
func (i *Index) Search(ctx context.Context, q string, limit int) ([]searchindex.Hit, error) {
	terms := searchindex.ParseQuery(q, i.fields)
	if len(terms) == 0 || i.count == 0 {
		return []searchindex.Hit{}, nil
	}

	size := i.count
	if limit > 0 && limit < size {
		size = limit
	}
	req := bleve.NewSearchRequestOptions(i.toQuery(terms), size, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]searchindex.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, searchindex.Hit{ID: h.ID, Score: h.Score})
	}
	return searchindex.SortHits(hits, limit), nil
}

func (i *Index) toQuery(terms []searchindex.Term) query.Query {
	var clauses []query.Query
	for _, t := range terms {
		fields := i.fields
		if t.Field != "" {
			fields = []string{t.Field}
		}
		for _, f := range fields {
			if t.Prefix {
				pq := bleve.NewPrefixQuery(t.Text)
				pq.SetField(f)
				clauses = append(clauses, pq)
				continue
			}
			tq := bleve.NewTermQuery(t.Text)
			tq.SetField(f)
			clauses = append(clauses, tq)
		}
	}
	return bleve.NewDisjunctionQuery(clauses...)
}
