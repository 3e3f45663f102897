package locusmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
	recordsrepo "github.com/kailas-cloud/locusmap/internal/repository/records"
	sidx "github.com/kailas-cloud/locusmap/internal/searchindex"
	healthuc "github.com/kailas-cloud/locusmap/internal/usecase/health"
	indexuc "github.com/kailas-cloud/locusmap/internal/usecase/searchindex"
	summaryuc "github.com/kailas-cloud/locusmap/internal/usecase/summary"
)

// Internal interfaces for substitution in tests.
type summaryUseCase interface {
	Summaries(ctx context.Context, sel summaryuc.Selection) ([]domsum.Table, error)
	Node(ctx context.Context, name string, sel summaryuc.Selection) ([]domsum.Table, error)
	Nodes() []string
	Records() int
}

type indexUseCase interface {
	Load(ctx context.Context) error
	Query(ctx context.Context, q string, limit int) ([]sidx.Hit, error)
	Wait(ctx context.Context) error
	Status() indexuc.Status
	Close() error
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the locusmap SDK entry point.
type Client struct {
	summaries summaryUseCase
	index     indexUseCase
	health    healthUseCase
	obs       *observer
}

// New loads a session and starts loading the search index in the background.
// The provided context bounds loading records and node metadata only.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	blobs, err := createBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	dataCfg, err := fieldconfig.Validate(cfg.dataFields.definition())
	if err != nil {
		return nil, fmt.Errorf("locusmap: data fields: %w", err)
	}
	nodeCfg, err := fieldconfig.Validate(cfg.nodeFields.definition())
	if err != nil {
		return nil, fmt.Errorf("locusmap: node fields: %w", err)
	}

	engine, err := indexuc.NewEngine(cfg.engine, cfg.tempDir)
	if err != nil {
		return nil, fmt.Errorf("locusmap: %w", err)
	}

	repo := recordsrepo.New(blobs, zap.NewNop()).WithPaths(cfg.recordsPath, cfg.nodesPath)
	store, err := repo.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("locusmap: %w", err)
	}
	nodes, err := repo.LoadNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("locusmap: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := wireClient(blobs, store, nodes, dataCfg, nodeCfg, engine, cfg, obs)
	go func() {
		// Outcome is reported through Status and WaitIndex.
		_ = c.index.Load(context.Background())
	}()
	return c, nil
}

func createBlobStore(cfg *clientConfig) (BlobStore, error) {
	var s BlobStore
	switch {
	case cfg.blobs != nil && cfg.localDir != "":
		return nil, errors.New("locusmap: WithBlobStore and WithLocalDir are mutually exclusive")
	case cfg.blobs != nil:
		s = cfg.blobs
	case cfg.localDir != "":
		s = blobstore.NewLocalStore(cfg.localDir)
	default:
		return nil, errors.New("locusmap: blob store required (use WithLocalDir or WithBlobStore)")
	}
	if cfg.compress {
		cs, err := blobstore.NewCompressedStore(s)
		if err != nil {
			return nil, fmt.Errorf("locusmap: compression: %w", err)
		}
		s = cs
	}
	return s, nil
}

func wireClient(
	blobs BlobStore,
	store *record.Store,
	nodes *record.Nodes,
	dataCfg, nodeCfg *fieldconfig.Config,
	engine sidx.Engine,
	cfg *clientConfig,
	obs *observer,
) *Client {
	idxOpts := []indexuc.Option{indexuc.WithLogger(zap.NewNop()), indexuc.WithObserver(obs)}
	if cfg.indexPath != "" {
		idxOpts = append(idxOpts, indexuc.WithBlobName(cfg.indexPath))
	}
	if cfg.persistTimeout > 0 {
		idxOpts = append(idxOpts, indexuc.WithPersistTimeout(cfg.persistTimeout))
	}
	manager := indexuc.New(blobs, engine, store.All(), idxOpts...)

	var pinger healthuc.BlobPinger
	if p, ok := blobs.(blobstore.Pinger); ok {
		pinger = p
	}

	return &Client{
		summaries: summaryuc.NewService(store, nodes, summaryuc.New(dataCfg), summaryuc.New(nodeCfg)),
		index:     manager,
		health:    healthuc.New(pinger, manager),
		obs:       obs,
	}
}

// Close waits for a pending index write and releases the index.
func (c *Client) Close() error {
	if err := c.index.Close(); err != nil {
		return fmt.Errorf("locusmap: close: %w", err)
	}
	return nil
}

// Summaries computes the data field tables with ids as the displayed subset.
// A nil ids slice displays every record.
func (c *Client) Summaries(ctx context.Context, ids []string) (tables []Table, err error) {
	start := time.Now()
	defer func() { c.obs.observe("summaries", start, err) }()

	return c.summaries.Summaries(ctx, summaryuc.Selection{IDs: ids}) //nolint:wrapcheck // domain errors re-exported
}

// Node computes the node panel. nDisplayed overrides the displayed count;
// when nil, records of ids whose node field names the node are counted.
func (c *Client) Node(ctx context.Context, name string, ids []string, nDisplayed *int) (tables []Table, err error) {
	start := time.Now()
	defer func() { c.obs.observe("node", start, err) }()

	return c.summaries.Node(ctx, name, summaryuc.Selection{IDs: ids, NDisplayed: nDisplayed}) //nolint:wrapcheck // domain errors re-exported
}

// Nodes returns node names in source order.
func (c *Client) Nodes() []string { return c.summaries.Nodes() }

// Records returns the number of loaded records.
func (c *Client) Records() int { return c.summaries.Records() }

// Search queries the index. It fails with ErrIndexNotReady until the index is ready.
func (c *Client) Search(ctx context.Context, q string, limit int) (hits []Hit, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	found, err := c.index.Query(ctx, q, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck // domain errors re-exported
	}
	hits = make([]Hit, len(found))
	for i, h := range found {
		hits[i] = Hit{ID: h.ID, Score: h.Score}
	}
	return hits, nil
}

// WaitIndex blocks until the index is ready or its build failed.
func (c *Client) WaitIndex(ctx context.Context) error {
	return c.index.Wait(ctx) //nolint:wrapcheck // domain errors re-exported
}

// IndexStatus reports the search index lifecycle.
func (c *Client) IndexStatus() IndexStatus {
	st := c.index.Status()
	return IndexStatus{
		State:     st.State.String(),
		Source:    st.Source,
		Documents: st.Documents,
		Err:       st.Err,
	}
}
