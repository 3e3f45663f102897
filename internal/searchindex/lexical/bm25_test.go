package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/locusmap/internal/domain/record"
	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const corpus = `[
	{"_id":"m1","cell":"astrocyte","factors":["sox2","pax6"],"node":"n1","orth_type":"one2one"},
	{"_id":"m2","cell":"neuron","factors":["pax6"],"node":"n2","orth_type":"one2many"},
	{"_id":"m3","cell":"neuron","factors":["neurod1","sox11"],"node":"n1"},
	{"cell":"orphan"}
]`

func view(t *testing.T) record.View {
	t.Helper()
	recs, err := record.DecodeRecords([]byte(corpus))
	require.NoError(t, err)
	return record.NewView(recs...)
}

func ids(hits []searchindex.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestBuild_SkipsRecordsWithoutRef(t *testing.T) {
	idx, err := New().Build(context.Background(), view(t))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search(context.Background(), "orphan", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := New().Build(ctx, view(t))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{"single term", "pax6", 10, []string{"m2", "m1"}},
		{"field restricted", "cell:neuron", 10, []string{"m2", "m3"}},
		{"prefix", "sox*", 10, []string{"m1", "m3"}},
		{"field prefix", "orth_type:one2*", 10, []string{"m1", "m2"}},
		{"limit", "neuron", 1, []string{"m2"}},
		{"case insensitive", "NEURON", 10, []string{"m2", "m3"}},
		{"no match", "glia", 10, []string{}},
		{"empty", "", 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(ctx, tt.query, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(hits))
		})
	}
}

func TestSearch_ScoresDescend(t *testing.T) {
	ctx := context.Background()
	idx, err := New().Build(ctx, view(t))
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "n1 neuron", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "m3", hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearch_CanceledContext(t *testing.T) {
	idx, err := New().Build(context.Background(), view(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, "pax6", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithFields(t *testing.T) {
	ctx := context.Background()
	idx, err := New(WithFields("cell")).Build(ctx, view(t))
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "pax6", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "astrocyte", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(hits))
}

func TestCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := New()
	idx, err := e.Build(ctx, view(t))
	require.NoError(t, err)

	data, err := e.Marshal(idx)
	require.NoError(t, err)

	restored, err := e.Unmarshal(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), restored.Len())

	for _, q := range []string{"pax6", "sox*", "cell:neuron", "n1 neuron"} {
		want, err := idx.Search(ctx, q, 10)
		require.NoError(t, err)
		got, err := restored.Search(ctx, q, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestCodec_RoundTripEmpty(t *testing.T) {
	ctx := context.Background()
	e := New()
	idx, err := e.Build(ctx, record.NewView())
	require.NoError(t, err)

	data, err := e.Marshal(idx)
	require.NoError(t, err)
	restored, err := e.Unmarshal(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Len())
}

func TestUnmarshal_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json"},
		{"other engine", `{"engine":"bleve","version":1}`},
		{"other version", `{"engine":"lexical","version":99}`},
		{"length mismatch", `{"engine":"lexical","version":1,"fields":["cell"],"refs":["m1"],
			"index":{"cell":{"postings":{},"lengths":[],"total":0}}}`},
		{"dangling posting", `{"engine":"lexical","version":1,"fields":["cell"],"refs":["m1"],
			"index":{"cell":{"postings":{"a":[{"d":4,"c":1}]},"lengths":[1],"total":1}}}`},
		{"unknown field", `{"engine":"lexical","version":1,"fields":["cell"],"refs":[],
			"index":{"node":{"postings":{},"lengths":[],"total":0}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithFields("cell")).Unmarshal(context.Background(), []byte(tt.data))
			assert.ErrorIs(t, err, searchindex.ErrIncompatible)
		})
	}
}

func TestUnmarshal_RejectsOtherFieldSet(t *testing.T) {
	ctx := context.Background()
	narrow := New(WithFields("cell"))
	idx, err := narrow.Build(ctx, view(t))
	require.NoError(t, err)
	data, err := narrow.Marshal(idx)
	require.NoError(t, err)

	_, err = New().Unmarshal(ctx, data)
	assert.ErrorIs(t, err, searchindex.ErrIncompatible)

	_, err = New(WithFields("cell")).Unmarshal(ctx, data)
	assert.NoError(t, err)
}

type otherIndex struct{ searchindex.Index }

func TestMarshal_ForeignIndex(t *testing.T) {
	_, err := New().Marshal(otherIndex{})
	assert.ErrorIs(t, err, searchindex.ErrForeignIndex)
}
