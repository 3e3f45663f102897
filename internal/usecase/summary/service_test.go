package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/locusmap/internal/domain"
	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
)

const sessionData = `[
	{"_id":"m1","factors":["f1","f2"],"cell":"A","node":"n1"},
	{"_id":"m2","factors":["f1"],"cell":"B","node":"n1"},
	{"_id":"m3","factors":["f3"],"cell":"A","node":"n2"}
]`

const sessionNodes = `{
	"n1":{"_id":"n1","factors":["f1","f2"],"modules":[1,2]},
	"n2":{"_id":"n2","factors":["f3"],"modules":[3]}
}`

func newService(t *testing.T) *Service {
	t.Helper()
	store := mustStore(t, sessionData)
	nodes, err := record.DecodeNodes([]byte(sessionNodes))
	if err != nil {
		t.Fatalf("DecodeNodes: %v", err)
	}
	data := mustEngine(t, fieldconfig.FieldDefinition{
		Field: "factors", Action: "count", Metric: "raw", From: "both", GroupBy: []string{"cell"},
	})
	nodeCfg, err := fieldconfig.Validate(fieldconfig.Definition{
		Fields: []fieldconfig.FieldDefinition{
			{Field: "_id", Action: "string", Metric: "raw", From: "all"},
			{Field: "modules", Action: "count", Metric: "raw", From: "all"},
			{Field: "nDisplayed", Action: "count", Metric: "raw", From: "displayed"},
		},
		Labels: map[string]string{"nDisplayed": "Displayed Modules"},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return NewService(store, nodes, data, New(nodeCfg))
}

func TestService_SummariesDefaultsToAllDisplayed(t *testing.T) {
	svc := newService(t)

	tables, err := svc.Summaries(context.Background(), Selection{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}
	row, ok := tables[0].ByKey("A")
	if !ok {
		t.Fatal("expected bucket A")
	}
	if row.Values[0].String() != "3" || row.Values[1].String() != "3" {
		t.Errorf("bucket A = %v, want 3 in both columns", row.Values)
	}
}

func TestService_SummariesSelection(t *testing.T) {
	svc := newService(t)

	tables, err := svc.Summaries(context.Background(), Selection{IDs: []string{"m2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := tables[0].ByKey("B")
	if row.Values[1].String() != "1" {
		t.Errorf("displayed B = %v, want 1", row.Values[1])
	}
	row, _ = tables[0].ByKey("A")
	if row.Values[1].String() != "0" {
		t.Errorf("displayed A = %v, want 0", row.Values[1])
	}
}

func TestService_SummariesUnknownID(t *testing.T) {
	svc := newService(t)

	_, err := svc.Summaries(context.Background(), Selection{IDs: []string{"nope"}})
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("error = %v, want ErrRecordNotFound", err)
	}
}

func TestService_Node(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tables, err := svc.Node(ctx, "n1", Selection{IDs: []string{"m1", "m3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("tables = %d, want 3", len(tables))
	}
	if got := tables[0].Rows[0].Values[0].String(); got != "n1" {
		t.Errorf("_id = %q, want n1", got)
	}
	if got := tables[1].Rows[0].Values[0].String(); got != "2" {
		t.Errorf("modules = %q, want 2", got)
	}
	nd := tables[2]
	if nd.Label != "Rows Displayed" || nd.Title != "Rows Displayed" {
		t.Errorf("nDisplayed label = %q, title = %q, want the fixed Rows Displayed", nd.Label, nd.Title)
	}
	if got := nd.Rows[0].Values[0].String(); got != "1" {
		t.Errorf("nDisplayed = %q, want 1", got)
	}

	n := 9
	tables, err = svc.Node(ctx, "n1", Selection{NDisplayed: &n})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tables[2].Rows[0].Values[0].String(); got != "9" {
		t.Errorf("explicit nDisplayed = %q, want 9", got)
	}
}

func TestService_NodeNotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.Node(context.Background(), "n9", Selection{})
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}

	empty := NewService(mustStore(t, sessionData), nil, svc.data, svc.node)
	_, err = empty.Node(context.Background(), "n1", Selection{})
	if !errors.Is(err, domain.ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}
	if empty.Nodes() != nil {
		t.Error("expected no nodes")
	}
}

func TestService_Nodes(t *testing.T) {
	svc := newService(t)
	got := svc.Nodes()
	if len(got) != 2 || got[0] != "n1" || got[1] != "n2" {
		t.Errorf("Nodes() = %v", got)
	}
	if svc.Records() != 3 {
		t.Errorf("Records() = %d, want 3", svc.Records())
	}
}
