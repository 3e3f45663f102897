package locusmap

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BlobStore reads and writes named blobs.
type BlobStore interface {
	GetFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
}

// Search index engines.
const (
	EngineLexical = "lexical"
	EngineBleve   = "bleve"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	blobs    BlobStore
	localDir string
	compress bool

	recordsPath string
	nodesPath   string
	indexPath   string

	dataFields FieldSet
	nodeFields FieldSet

	engine         string
	tempDir        string
	persistTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithBlobStore reads the session from a caller-provided blob store.
func WithBlobStore(s BlobStore) Option {
	return optionFunc(func(c *clientConfig) {
		c.blobs = s
	})
}

// WithLocalDir reads the session from files under dir.
func WithLocalDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.localDir = dir
	})
}

// WithCompression zstd-compresses blobs written by the client.
// Uncompressed blobs remain readable.
func WithCompression() Option {
	return optionFunc(func(c *clientConfig) {
		c.compress = true
	})
}

// WithDataPaths overrides the blob names of records, node metadata and the
// cached index. Empty names keep the defaults
// (dataMap.json, nodes.json, indexData.json).
func WithDataPaths(records, nodes, index string) Option {
	return optionFunc(func(c *clientConfig) {
		c.recordsPath = records
		c.nodesPath = nodes
		c.indexPath = index
	})
}

// WithDataFields sets the field configuration of record summaries.
func WithDataFields(fs FieldSet) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataFields = fs
	})
}

// WithNodeFields sets the field configuration of node summaries.
func WithNodeFields(fs FieldSet) Option {
	return optionFunc(func(c *clientConfig) {
		c.nodeFields = fs
	})
}

// WithEngine selects the search index engine. Default: EngineLexical.
func WithEngine(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine = name
	})
}

// WithTempDir sets where the bleve engine keeps its index directories.
func WithTempDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.tempDir = dir
	})
}

// WithPersistTimeout bounds the background write of a rebuilt index.
// Default: 30s.
func WithPersistTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.persistTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
