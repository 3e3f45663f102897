package summary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/domain"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
	"github.com/kailas-cloud/locusmap/internal/logger"
)

// NodeField is the record field naming the map node a record belongs to.
const NodeField = "node"

// Service answers summary requests over one loaded session.
type Service struct {
	records *record.Store
	nodes   *record.Nodes
	data    *Engine
	node    *Engine
}

// NewService creates a Service. nodes may be nil when no node metadata exists.
func NewService(records *record.Store, nodes *record.Nodes, data, node *Engine) *Service {
	return &Service{records: records, nodes: nodes, data: data, node: node}
}

// Selection describes the displayed subset. A nil IDs slice displays every record.
type Selection struct {
	IDs        []string
	NDisplayed *int
}

func (s *Service) displayed(sel Selection) (record.View, error) {
	if sel.IDs == nil {
		return s.records.All(), nil
	}
	v, err := s.records.Select(sel.IDs)
	if err != nil {
		return record.View{}, fmt.Errorf("select displayed: %w", err)
	}
	return v, nil
}

// Summaries computes the data field tables for a selection.
func (s *Service) Summaries(ctx context.Context, sel Selection) ([]domsum.Table, error) {
	displayed, err := s.displayed(sel)
	if err != nil {
		return nil, err
	}
	tables, err := s.data.SummarizeAll(Scope{
		All:        s.records.All(),
		Displayed:  displayed,
		NDisplayed: sel.NDisplayed,
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Summaries computed",
		zap.Int("tables", len(tables)),
		zap.Int("displayed", displayed.Len()),
	)
	return tables, nil
}

// Node computes the node panel. Without an explicit count, nDisplayed is the
// number of displayed records whose node field names the node.
func (s *Service) Node(ctx context.Context, name string, sel Selection) ([]domsum.Table, error) {
	if s.nodes == nil {
		return nil, fmt.Errorf("node %q: %w", name, domain.ErrNodeNotFound)
	}
	meta, ok := s.nodes.Get(name)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", name, domain.ErrNodeNotFound)
	}

	n := 0
	if sel.NDisplayed != nil {
		n = *sel.NDisplayed
	} else {
		displayed, err := s.displayed(sel)
		if err != nil {
			return nil, err
		}
		n = countInNode(displayed, name)
	}

	tables, err := s.node.Node(meta, n)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Node summary computed",
		zap.String("node", name),
		zap.Int("displayed", n),
	)
	return tables, nil
}

// Nodes returns node names in source order.
func (s *Service) Nodes() []string {
	if s.nodes == nil {
		return nil
	}
	return s.nodes.Names()
}

// Records returns the number of records in the store.
func (s *Service) Records() int { return s.records.Len() }

func countInNode(v record.View, name string) int {
	n := 0
	for _, r := range v.All() {
		val, ok := r.Get(NodeField)
		if !ok {
			continue
		}
		if sc, ok := val.Scalar(); ok && sc.String() == name {
			n++
		}
	}
	return n
}
