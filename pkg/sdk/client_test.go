package locusmap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
)

const (
	testRecords = `[
		{"_id":"m1","cell":"astrocyte","factors":["sox2","pax6"],"node":"n1","orth_type":"one2one"},
		{"_id":"m2","cell":"neuron","factors":["pax6"],"node":"n1"},
		{"_id":"m3","cell":"neuron","factors":["neurod1"],"node":"n2"}
	]`
	testNodes = `{
		"n1":{"_id":"n1","modules":["m1","m2"],"class":"A"},
		"n2":{"_id":"n2","modules":["m3"],"class":"B"}
	}`
)

var (
	dataFields = FieldSet{Fields: []Field{
		{Name: "factors", Action: "count", Metric: "density", From: "both", GroupBy: "cell", Title: "Factors"},
	}}
	nodeFields = FieldSet{
		Fields: []Field{
			{Name: "_id", Action: "string", Metric: "raw", From: "all"},
			{Name: "modules", Action: "count", Metric: "raw", From: "all"},
			{Name: "nDisplayed", Action: "count", Metric: "raw", From: "displayed"},
		},
		Labels: map[string]string{"_id": "Pattern"},
	}
)

func seededStore(t *testing.T) *blobstore.MemoryStore {
	t.Helper()
	s := blobstore.NewMemoryStore()
	ctx := context.Background()
	if err := s.WriteFile(ctx, "dataMap.json", []byte(testRecords)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, "nodes.json", []byte(testNodes)); err != nil {
		t.Fatal(err)
	}
	return s
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithDataFields(dataFields), WithNodeFields(nodeFields)}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitReady(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.WaitIndex(ctx); err != nil {
		t.Fatalf("WaitIndex: %v", err)
	}
}

func TestNew_NoBlobStore(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no blob store configured")
	}
}

func TestNew_ExclusiveStores(t *testing.T) {
	_, err := New(context.Background(), WithBlobStore(blobstore.NewMemoryStore()), WithLocalDir(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for two blob stores")
	}
}

func TestNew_InvalidFields(t *testing.T) {
	bad := FieldSet{Fields: []Field{{Name: "factors", Action: "sum", Metric: "raw", From: "all"}}}
	_, err := New(context.Background(), WithBlobStore(seededStore(t)), WithDataFields(bad))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "factors" {
		t.Errorf("expected ConfigError for factors, got %v", err)
	}
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New(context.Background(), WithBlobStore(seededStore(t)), WithEngine("vector"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestNew_MissingRecords(t *testing.T) {
	_, err := New(context.Background(), WithBlobStore(blobstore.NewMemoryStore()))
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("error = %v, want ErrBlobNotFound", err)
	}
}

func TestSummaries(t *testing.T) {
	c := newClient(t, WithBlobStore(seededStore(t)))
	ctx := context.Background()

	tables, err := c.Summaries(ctx, []string{"m2", "m3"})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(tables) != 1 || tables[0].Title != "Factors" {
		t.Fatalf("unexpected tables: %+v", tables)
	}
	neuron, ok := tables[0].ByKey("neuron")
	if !ok {
		t.Fatal("expected neuron bucket")
	}
	// all: 2 of 4 factors; displayed: 2 of 2
	if got, _ := neuron.Values[0].Float(); got != 0.5 {
		t.Errorf("all density = %v, want 0.5", got)
	}
	if got, _ := neuron.Values[1].Float(); got != 1 {
		t.Errorf("displayed density = %v, want 1", got)
	}

	_, err = c.Summaries(ctx, []string{"nope"})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("error = %v, want ErrRecordNotFound", err)
	}
	if c.Records() != 3 {
		t.Errorf("Records() = %d, want 3", c.Records())
	}
}

func TestNode(t *testing.T) {
	c := newClient(t, WithBlobStore(seededStore(t)))
	ctx := context.Background()

	tables, err := c.Node(ctx, "n1", nil, nil)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("tables = %d, want 3", len(tables))
	}
	if tables[0].Label != "Pattern" || tables[0].Rows[0].Values[0].String() != "n1" {
		t.Errorf("unexpected _id table: %+v", tables[0])
	}
	if got := tables[2].Rows[0].Values[0].String(); got != "2" {
		t.Errorf("nDisplayed = %q, want 2", got)
	}

	n := 7
	tables, err = c.Node(ctx, "n2", nil, &n)
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if got := tables[2].Rows[0].Values[0].String(); got != "7" {
		t.Errorf("nDisplayed = %q, want 7", got)
	}

	_, err = c.Node(ctx, "n9", nil, nil)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}
	if got := c.Nodes(); len(got) != 2 {
		t.Errorf("Nodes() = %v", got)
	}
}

func TestSearch_BuildsAndPersists(t *testing.T) {
	store := seededStore(t)
	c := newClient(t, WithBlobStore(store))
	waitReady(t, c)

	st := c.IndexStatus()
	if st.State != "ready" || st.Source != "build" || st.Documents != 3 {
		t.Errorf("unexpected status: %+v", st)
	}

	hits, err := c.Search(context.Background(), "cell:neuron", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "m2" || hits[1].ID != "m3" {
		t.Errorf("hits = %+v", hits)
	}

	// Close waits for the background persist.
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.GetFile(context.Background(), "indexData.json"); err != nil {
		t.Fatalf("expected persisted index: %v", err)
	}

	// A second session loads the persisted index.
	again := newClient(t, WithBlobStore(store))
	waitReady(t, again)
	if src := again.IndexStatus().Source; src != "cache" {
		t.Errorf("second session source = %q, want cache", src)
	}
}

func TestSearch_Bleve(t *testing.T) {
	c := newClient(t, WithBlobStore(seededStore(t)), WithEngine(EngineBleve), WithTempDir(t.TempDir()))
	waitReady(t, c)

	hits, err := c.Search(context.Background(), "pax6", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits = %+v, want 2", hits)
	}
}

func TestLocalDirWithCompression(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dataMap.json"), []byte(testRecords), 0o600); err != nil {
		t.Fatal(err)
	}

	c := newClient(t, WithLocalDir(dir), WithCompression(), WithDataPaths("", "", "cache/index.json"))
	waitReady(t, c)
	if len(c.Nodes()) != 0 {
		t.Errorf("expected no nodes without nodes.json, got %v", c.Nodes())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cache", "index.json"))
	if err != nil {
		t.Fatalf("read persisted index: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Error("persisted index is not zstd framed")
	}
}

func TestHealth(t *testing.T) {
	c := newClient(t, WithLocalDir(seededDir(t)))
	waitReady(t, c)

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, checks %v", h.Status, h.Checks)
	}
	if h.Checks["blobstore"] != "ok" || h.Checks["search_index"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}

func seededDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range map[string]string{"dataMap.json": testRecords, "nodes.json": testNodes} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newClient(t, WithBlobStore(seededStore(t)), WithPrometheus(reg), WithLogger(logger))
	if _, err := c.Summaries(context.Background(), nil); err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	_, _ = c.Node(context.Background(), "n9", nil, nil)

	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("summaries", "ok")); got != 1 {
		t.Errorf("summaries ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("node", "error")); got != 1 {
		t.Errorf("node error = %v, want 1", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("op=node")) {
		t.Errorf("expected failed operation log, got %q", logs.String())
	}

	waitReady(t, c)
	if got := testutil.ToFloat64(c.obs.metrics.indexState.WithLabelValues("ready")); got != 1 {
		t.Errorf("index_state{ready} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.indexEvents.WithLabelValues("load", "miss")); got != 1 {
		t.Errorf("index load miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.indexEvents.WithLabelValues("build", "ok")); got != 1 {
		t.Errorf("index build ok = %v, want 1", got)
	}
}

func TestOperationStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrIndexNotReady, "not_ready"},
		{ErrNodeNotFound, "error"},
	}
	for _, tt := range tests {
		if got := operationStatus(tt.err); got != tt.want {
			t.Errorf("operationStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first observer: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the registered collector to be reused")
	}

	var nilObs *observer
	nilObs.observe("noop", time.Now(), nil)
}
