// Package searchindex defines the full-text index contracts shared by the
// index engines and the index lifecycle manager.
package searchindex

import (
	"context"
	"errors"
	"slices"

	"github.com/kailas-cloud/locusmap/internal/domain/record"
)

var (
	// ErrIncompatible reports serialized index data the engine cannot restore.
	ErrIncompatible = errors.New("incompatible index data")
	// ErrForeignIndex reports an Index built by a different engine.
	ErrForeignIndex = errors.New("index belongs to another engine")
)

// RefField is the record field used as the document reference.
const RefField = record.IDField

// DefaultFields are the record fields indexed for search.
var DefaultFields = []string{"cell", "factors", "node", "orth_type"}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index is a queryable full-text index.
// Implementations are immutable once built and safe for concurrent Search.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Len() int
	Close() error
}

// Engine builds, serializes and restores one kind of Index.
type Engine interface {
	Name() string
	Build(ctx context.Context, records record.View) (Index, error)
	Marshal(idx Index) ([]byte, error)
	Unmarshal(ctx context.Context, data []byte) (Index, error)
}

// Document is the indexable projection of a record.
type Document struct {
	ID     string
	Fields map[string]string
}

// Documents projects records onto the indexed fields.
// Records without a reference are skipped; absent fields are omitted.
func Documents(records record.View, fields []string) []Document {
	docs := make([]Document, 0, records.Len())
	for _, r := range records.All() {
		id := r.ID()
		if id == "" {
			continue
		}
		d := Document{ID: id, Fields: make(map[string]string, len(fields))}
		for _, f := range fields {
			if v, ok := r.Get(f); ok {
				if text := v.Text(); text != "" {
					d.Fields[f] = text
				}
			}
		}
		docs = append(docs, d)
	}
	return docs
}

// SortHits orders hits by score descending, then ID ascending, and truncates to limit.
// A non-positive limit keeps all hits.
func SortHits(hits []Hit, limit int) []Hit {
	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
