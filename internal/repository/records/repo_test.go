package records

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	files map[string]string
	err   error
	calls []string
}

func (m *mockStore) GetFile(_ context.Context, name string) ([]byte, error) {
	m.calls = append(m.calls, name)
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.files[name]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return []byte(data), nil
}

func TestLoadRecords_Array(t *testing.T) {
	s := &mockStore{files: map[string]string{
		DefaultRecordsPath: `[{"_id":"m1","cell":"neuron"},{"_id":"m2","cell":"glia"}]`,
	}}

	store, err := New(s, nil).LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
	if _, ok := store.Get("m2"); !ok {
		t.Error("expected record m2")
	}
}

func TestLoadRecords_ObjectKeepsOrder(t *testing.T) {
	s := &mockStore{files: map[string]string{
		DefaultRecordsPath: `{"b":{"_id":"m2"},"a":{"_id":"m1"}}`,
	}}

	store, err := New(s, nil).LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view := store.All()
	if view.At(0).ID() != "m2" || view.At(1).ID() != "m1" {
		t.Errorf("order = %s,%s, want m2,m1", view.At(0).ID(), view.At(1).ID())
	}
}

func TestLoadRecords_Errors(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockStore
		wantErr error
	}{
		{"missing blob", &mockStore{}, blobstore.ErrNotFound},
		{"duplicate id", &mockStore{files: map[string]string{
			DefaultRecordsPath: `[{"_id":"m1"},{"_id":"m1"}]`,
		}}, domain.ErrDuplicateRecord},
		{"missing id", &mockStore{files: map[string]string{
			DefaultRecordsPath: `[{"cell":"neuron"}]`,
		}}, domain.ErrInvalidRecord},
		{"not json", &mockStore{files: map[string]string{
			DefaultRecordsPath: `nope`,
		}}, domain.ErrInvalidRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.store, nil).LoadRecords(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadNodes(t *testing.T) {
	s := &mockStore{files: map[string]string{
		DefaultNodesPath: `{"n1":{"factors":["sox2"],"class":"A"},"n2":{"class":"B"}}`,
	}}

	nodes, err := New(s, nil).LoadNodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes.Len() != 2 {
		t.Errorf("Len() = %d, want 2", nodes.Len())
	}
	n1, ok := nodes.Get("n1")
	if !ok {
		t.Fatal("expected node n1")
	}
	if v, _ := n1.Get("class"); v.Text() != "A" {
		t.Errorf("class = %q, want A", v.Text())
	}
}

func TestLoadNodes_MissingBlobIsEmpty(t *testing.T) {
	nodes, err := New(&mockStore{}, nil).LoadNodes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes.Len() != 0 {
		t.Errorf("Len() = %d, want 0", nodes.Len())
	}
}

func TestLoadNodes_TransportError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := New(&mockStore{err: boom}, nil).LoadNodes(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestWithPaths(t *testing.T) {
	s := &mockStore{files: map[string]string{
		"session/records.json": `[]`,
		"session/nodes.json":   `{}`,
	}}
	r := New(s, nil).WithPaths("session/records.json", "session/nodes.json")

	if _, err := r.LoadRecords(context.Background()); err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if _, err := r.LoadNodes(context.Background()); err != nil {
		t.Fatalf("LoadNodes: %v", err)
	}
	if len(s.calls) != 2 || s.calls[0] != "session/records.json" || s.calls[1] != "session/nodes.json" {
		t.Errorf("calls = %v", s.calls)
	}
}
