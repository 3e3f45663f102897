// Package records loads the record store and node metadata from the blob store.
package records

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
)

// Default blob names.
const (
	DefaultRecordsPath = "dataMap.json"
	DefaultNodesPath   = "nodes.json"
)

// store is the consumer interface for blob reads (ISP).
type store interface {
	GetFile(ctx context.Context, name string) ([]byte, error)
}

// Repo reads records and nodes from a blob store.
type Repo struct {
	store       store
	recordsPath string
	nodesPath   string
	logger      *zap.Logger
}

// New creates a records repository with the default blob names.
func New(s store, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, recordsPath: DefaultRecordsPath, nodesPath: DefaultNodesPath, logger: logger}
}

// WithPaths overrides the blob names. Empty names keep the current value.
func (r *Repo) WithPaths(recordsPath, nodesPath string) *Repo {
	if recordsPath != "" {
		r.recordsPath = recordsPath
	}
	if nodesPath != "" {
		r.nodesPath = nodesPath
	}
	return r
}

// LoadRecords fetches and decodes the record store.
func (r *Repo) LoadRecords(ctx context.Context) (*record.Store, error) {
	data, err := r.store.GetFile(ctx, r.recordsPath)
	if err != nil {
		return nil, fmt.Errorf("get records %s: %w", r.recordsPath, err)
	}
	s, err := record.DecodeStore(data)
	if err != nil {
		return nil, fmt.Errorf("decode records %s: %w", r.recordsPath, err)
	}
	r.logger.Info("Records loaded", zap.String("blob", r.recordsPath), zap.Int("records", s.Len()))
	return s, nil
}

// LoadNodes fetches and decodes node metadata. A missing blob yields no nodes.
func (r *Repo) LoadNodes(ctx context.Context) (*record.Nodes, error) {
	data, err := r.store.GetFile(ctx, r.nodesPath)
	if errors.Is(err, blobstore.ErrNotFound) {
		r.logger.Warn("Node metadata not found", zap.String("blob", r.nodesPath))
		data = []byte("{}")
	} else if err != nil {
		return nil, fmt.Errorf("get nodes %s: %w", r.nodesPath, err)
	}
	n, err := record.DecodeNodes(data)
	if err != nil {
		return nil, fmt.Errorf("decode nodes %s: %w", r.nodesPath, err)
	}
	r.logger.Info("Nodes loaded", zap.String("blob", r.nodesPath), zap.Int("nodes", n.Len()))
	return n, nil
}
