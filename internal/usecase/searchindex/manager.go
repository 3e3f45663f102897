// Package searchindex manages the lifecycle of the session search index:
// load the cached index, else build it from the record store, then persist it.
package searchindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/domain"
	"github.com/kailas-cloud/locusmap/internal/domain/record"
	sidx "github.com/kailas-cloud/locusmap/internal/searchindex"
)

const (
	// DefaultBlobName is the blob holding the cached index.
	DefaultBlobName = "indexData.json"
	// DefaultPersistTimeout bounds the background persist.
	DefaultPersistTimeout = 30 * time.Second

	flightKey = "index"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("search index manager closed")

// Option configures a Manager.
type Option func(*Manager)

// WithBlobName sets the name of the cached index blob.
func WithBlobName(name string) Option {
	return func(m *Manager) { m.blobName = name }
}

// WithPersistTimeout bounds how long a background persist may run.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *Manager) { m.persistTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver reports lifecycle events to obs.
func WithObserver(obs Observer) Option {
	return func(m *Manager) { m.obs = obs }
}

// Manager owns one search index per session.
//
// Load and Build share a single flight: concurrent callers join the running
// sequence and later callers observe its terminal outcome. Queries are
// rejected with domain.ErrIndexNotReady until the index is Ready.
type Manager struct {
	blobs          BlobStore
	engine         sidx.Engine
	records        record.View
	blobName       string
	persistTimeout time.Duration
	logger         *zap.Logger
	obs            Observer

	flight   singleflight.Group
	persist  sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.RWMutex
	state  State
	source string
	index  sidx.Index
	err    error
	closed bool
}

// New creates a Manager in state Absent. records must be fully loaded.
func New(blobs BlobStore, engine sidx.Engine, records record.View, opts ...Option) *Manager {
	m := &Manager{
		blobs:          blobs,
		engine:         engine,
		records:        records,
		blobName:       DefaultBlobName,
		persistTimeout: DefaultPersistTimeout,
		logger:         zap.NewNop(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.report(Absent)
	return m
}

// Load loads the cached index, falling back to a build on any load failure.
// It returns once the sequence finished or ctx is done; the sequence itself
// is not canceled by ctx.
func (m *Manager) Load(ctx context.Context) error {
	return m.start(ctx, true)
}

// Build builds the index from records without consulting the cache.
func (m *Manager) Build(ctx context.Context) error {
	return m.start(ctx, false)
}

func (m *Manager) start(ctx context.Context, fromCache bool) error {
	detached := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(flightKey, func() (any, error) {
		return nil, m.run(detached, fromCache)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context error passthrough
	}
}

// run executes the lifecycle once. Later runs return the terminal outcome.
func (m *Manager) run(ctx context.Context, fromCache bool) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != Absent {
		err := m.err
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if fromCache {
		m.transition(Loading)
		idx, err := m.load(ctx)
		if err == nil {
			m.ready(idx, SourceCache, 0, false)
			return nil
		}
		m.logger.Warn("Search index load failed, rebuilding",
			zap.String("blob", m.blobName),
			zap.Error(err),
		)
	}

	m.transition(Building)
	start := time.Now()
	idx, err := m.engine.Build(ctx, m.records)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
		m.observeBuild(ResultError, elapsed)
		m.logger.Error("Search index build failed",
			zap.String("engine", m.engine.Name()),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		m.fail(err)
		return err
	}
	m.observeBuild(ResultOK, elapsed)

	if m.ready(idx, SourceBuild, elapsed, true) {
		go m.persistIndex(ctx, idx)
	}
	return nil
}

func (m *Manager) load(ctx context.Context) (sidx.Index, error) {
	data, err := m.blobs.GetFile(ctx, m.blobName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			m.observeLoad(ResultMiss)
		} else {
			m.observeLoad(ResultError)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexLoad, err)
	}
	idx, err := m.engine.Unmarshal(ctx, data)
	if err != nil {
		m.observeLoad(ResultError)
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexLoad, err)
	}
	m.observeLoad(ResultOK)
	return idx, nil
}

// persistIndex writes the index back to the blob store. It runs in the
// background; failures are logged and never retried.
func (m *Manager) persistIndex(ctx context.Context, idx sidx.Index) {
	defer m.persist.Done()

	ctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()

	if err := m.write(ctx, idx); err != nil {
		m.observePersist(ResultError)
		m.logger.Warn("Search index persist failed",
			zap.String("blob", m.blobName),
			zap.Error(err),
		)
		return
	}
	m.observePersist(ResultOK)
	m.logger.Debug("Search index persisted", zap.String("blob", m.blobName))
}

func (m *Manager) write(ctx context.Context, idx sidx.Index) error {
	data, err := m.engine.Marshal(idx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexPersist, err)
	}
	if err := m.blobs.WriteFile(ctx, m.blobName, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexPersist, err)
	}
	return nil
}

// Query searches the index. It fails with domain.ErrIndexNotReady before Ready.
func (m *Manager) Query(ctx context.Context, q string, limit int) ([]sidx.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.state != Ready {
		return nil, fmt.Errorf("%w: state %s", domain.ErrIndexNotReady, m.state)
	}
	hits, err := m.index.Search(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// Wait blocks until the index is Ready or its build failed.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context error passthrough
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns a lifecycle snapshot.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{State: m.state, Source: m.source, Err: m.err}
	if m.index != nil {
		s.Documents = m.index.Len()
	}
	return s
}

// Close waits for a pending persist and releases the index.
// Waiters of an unfinished lifecycle are released with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.state != Ready && m.err == nil {
		m.err = ErrClosed
	}
	m.finish()
	m.mu.Unlock()

	m.persist.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == nil {
		return nil
	}
	if err := m.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	m.index = nil
	return nil
}

func (m *Manager) transition(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.report(s)
}

// ready publishes idx and, when persist is set, registers the pending
// persist. It reports false when the manager was closed meanwhile.
func (m *Manager) ready(idx sidx.Index, source string, elapsed time.Duration, persist bool) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = idx.Close()
		return false
	}
	m.index = idx
	m.source = source
	m.state = Ready
	if persist {
		m.persist.Add(1)
	}
	m.finish()
	m.mu.Unlock()

	m.report(Ready)
	m.logger.Info("Search index ready",
		zap.String("source", source),
		zap.String("engine", m.engine.Name()),
		zap.Int("documents", idx.Len()),
		zap.Duration("build_duration", elapsed),
	)
	return true
}

// fail records a terminal build failure. The state stays Building.
func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.finish()
	m.mu.Unlock()
}

// finish releases waiters. Callers hold mu.
func (m *Manager) finish() {
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Manager) report(s State) {
	if m.obs != nil {
		m.obs.SetIndexState(s.String())
	}
}

func (m *Manager) observeLoad(result string) {
	if m.obs != nil {
		m.obs.ObserveIndexLoad(result)
	}
}

func (m *Manager) observeBuild(result string, d time.Duration) {
	if m.obs != nil {
		m.obs.ObserveIndexBuild(result, d)
	}
}

func (m *Manager) observePersist(result string) {
	if m.obs != nil {
		m.obs.ObserveIndexPersist(result)
	}
}
