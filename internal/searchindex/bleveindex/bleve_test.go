package bleveindex

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/locusmap/internal/domain/record"
	"github.com/kailas-cloud/locusmap/internal/searchindex"
)

const corpus = `[
	{"_id":"m1","cell":"astrocyte","factors":["sox2","pax6"],"node":"n1","orth_type":"one2one"},
	{"_id":"m2","cell":"neuron","factors":["pax6"],"node":"n2","orth_type":"one2many"},
	{"_id":"m3","cell":"neuron","factors":["neurod1","sox11"],"node":"n1"}
]`

func buildIndex(t *testing.T, e *Engine) searchindex.Index {
	t.Helper()
	recs, err := record.DecodeRecords([]byte(corpus))
	require.NoError(t, err)

	idx, err := e.Build(context.Background(), record.NewView(recs...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func ids(hits []searchindex.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := buildIndex(t, New(WithTempDir(t.TempDir())))
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search(ctx, "astrocyte", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(hits))

	hits, err = idx.Search(ctx, "cell:neuron", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m2", "m3"}, ids(hits))

	hits, err = idx.Search(ctx, "sox*", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m3"}, ids(hits))

	hits, err = idx.Search(ctx, "pax6", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_FieldRestriction(t *testing.T) {
	idx := buildIndex(t, New(WithTempDir(t.TempDir())))

	hits, err := idx.Search(context.Background(), "node:neuron", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := New(WithTempDir(t.TempDir()))
	idx := buildIndex(t, e)

	data, err := e.Marshal(idx)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := e.Unmarshal(ctx, data)
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, idx.Len(), restored.Len())

	for _, q := range []string{"pax6", "sox*", "cell:neuron"} {
		want, err := idx.Search(ctx, q, 10)
		require.NoError(t, err)
		got, err := restored.Search(ctx, q, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestClose_RemovesDirectory(t *testing.T) {
	e := New(WithTempDir(t.TempDir()))
	recs, err := record.DecodeRecords([]byte(corpus))
	require.NoError(t, err)

	idx, err := e.Build(context.Background(), record.NewView(recs...))
	require.NoError(t, err)
	dir := idx.(*Index).dir

	require.NoError(t, idx.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestMarshal_MissingDirectory(t *testing.T) {
	e := New(WithTempDir(t.TempDir()))
	recs, err := record.DecodeRecords([]byte(corpus))
	require.NoError(t, err)

	idx, err := e.Build(context.Background(), record.NewView(recs...))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = e.Marshal(idx)
	assert.Error(t, err)
}

func TestUnmarshal_Rejects(t *testing.T) {
	ctx := context.Background()
	e := New(WithTempDir(t.TempDir()))

	_, err := e.Unmarshal(ctx, []byte("not an archive"))
	assert.ErrorIs(t, err, searchindex.ErrIncompatible)

	idx := buildIndex(t, e)
	data, err := e.Marshal(idx)
	require.NoError(t, err)

	other := New(WithTempDir(t.TempDir()), WithFields("cell"))
	_, err = other.Unmarshal(ctx, data)
	assert.ErrorIs(t, err, searchindex.ErrIncompatible)
}

type otherIndex struct{ searchindex.Index }

func TestMarshal_ForeignIndex(t *testing.T) {
	_, err := New().Marshal(otherIndex{})
	assert.ErrorIs(t, err, searchindex.ErrForeignIndex)
}
