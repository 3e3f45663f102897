package lexical

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const (
	// EngineName identifies lexical index snapshots.
	EngineName = "lexical"

	formatVersion = 1
)

type snapshot struct {
	Engine  string                 `json:"engine"`
	Version int                    `json:"version"`
	Ref     string                 `json:"ref"`
	Fields  []string               `json:"fields"`
	Refs    []string               `json:"refs"`
	Index   map[string]*fieldIndex `json:"index"`
}

// Marshal serializes an index built by this engine.
func (e *Engine) Marshal(idx searchindex.Index) ([]byte, error) {
	li, ok := idx.(*Index)
	if !ok {
		return nil, fmt.Errorf("marshal %T: %w", idx, searchindex.ErrForeignIndex)
	}
	data, err := json.Marshal(snapshot{
		Engine:  EngineName,
		Version: formatVersion,
		Ref:     searchindex.RefField,
		Fields:  li.fields,
		Refs:    li.refs,
		Index:   li.byName,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal lexical index: %w", err)
	}
	return data, nil
}

// Unmarshal restores a serialized index, rejecting data written by another
// engine, format version or field set.
func (e *Engine) Unmarshal(ctx context.Context, data []byte) (searchindex.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error passthrough
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode lexical index: %w: %w", searchindex.ErrIncompatible, err)
	}
	if s.Engine != EngineName || s.Version != formatVersion {
		return nil, fmt.Errorf("lexical index: engine %q version %d: %w",
			s.Engine, s.Version, searchindex.ErrIncompatible)
	}
	if !slices.Equal(s.Fields, e.fields) {
		return nil, fmt.Errorf("lexical index: fields %v, engine indexes %v: %w",
			s.Fields, e.fields, searchindex.ErrIncompatible)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	idx := &Index{fields: s.Fields, refs: s.Refs, byName: s.Index}
	for _, fi := range idx.byName {
		fi.seal()
	}
	return idx, nil
}

func (s *snapshot) validate() error {
	if s.Refs == nil {
		s.Refs = []string{}
	}
	if s.Index == nil {
		s.Index = make(map[string]*fieldIndex)
	}
	for name, fi := range s.Index {
		if !slices.Contains(s.Fields, name) || fi == nil {
			return fmt.Errorf("lexical index: unexpected field %q: %w", name, searchindex.ErrIncompatible)
		}
		if len(fi.Lengths) != len(s.Refs) {
			return fmt.Errorf("lexical index: field %q has %d lengths for %d refs: %w",
				name, len(fi.Lengths), len(s.Refs), searchindex.ErrIncompatible)
		}
		if fi.Postings == nil {
			fi.Postings = make(map[string][]posting)
		}
		for term, ps := range fi.Postings {
			for _, p := range ps {
				if p.Doc < 0 || p.Doc >= len(s.Refs) {
					return fmt.Errorf("lexical index: term %q references doc %d: %w",
						term, p.Doc, searchindex.ErrIncompatible)
				}
			}
		}
	}
	for _, name := range s.Fields {
		if _, ok := s.Index[name]; !ok {
			s.Index[name] = newFieldIndex(len(s.Refs))
		}
	}
	return nil
}
