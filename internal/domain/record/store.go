package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/kailas-cloud/locusmap/internal/domain"
)

// Store is the immutable in-memory record collection of a session.
// Every record carries a unique _id.
type Store struct {
	records []Record
	byID    map[string]int
}

// NewStore validates identities and creates a store. The slice is owned by the store afterwards.
func NewStore(records []Record) (*Store, error) {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		id := r.ID()
		if id == "" {
			return nil, fmt.Errorf("%w: record %d has no %s", domain.ErrInvalidRecord, i, IDField)
		}
		if prev, dup := byID[id]; dup {
			return nil, fmt.Errorf("%w: %q at %d and %d", domain.ErrDuplicateRecord, id, prev, i)
		}
		byID[id] = i
	}
	return &Store{records: records, byID: byID}, nil
}

// DecodeStore parses records (see DecodeRecords) into a store.
func DecodeStore(data []byte) (*Store, error) {
	recs, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	return NewStore(recs)
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// All returns a view over every record in store order.
func (s *Store) All() View { return View{records: s.records} }

// Get looks a record up by _id.
func (s *Store) Get(id string) (Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Select builds a view over the given ids, in the given order.
// Repeated ids select their record once, at the first occurrence.
func (s *Store) Select(ids []string) (View, error) {
	out := make([]Record, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i, ok := s.byID[id]
		if !ok {
			return View{}, fmt.Errorf("%w: %q", domain.ErrRecordNotFound, id)
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, s.records[i])
	}
	return View{records: out}, nil
}

// Nodes holds per-node metadata records keyed by node name.
type Nodes struct {
	names []string
	nodes map[string]Record
}

// DecodeNodes parses a JSON object mapping node names to metadata objects.
func DecodeNodes(data []byte) (*Nodes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: nodes must be a JSON object", domain.ErrInvalidRecord)
	}

	n := &Nodes{nodes: make(map[string]Record)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
		}
		name, _ := keyTok.(string)
		r, err := readRecord(dec)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		if _, dup := n.nodes[name]; !dup {
			n.names = append(n.names, name)
		}
		n.nodes[name] = r
	}
	if err := closeDelim(dec); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns the metadata record of a node.
func (n *Nodes) Get(name string) (Record, bool) {
	r, ok := n.nodes[name]
	return r, ok
}

// Names returns node names in source order.
func (n *Nodes) Names() []string { return slices.Clone(n.names) }

// Len returns the number of nodes.
func (n *Nodes) Len() int { return len(n.names) }
