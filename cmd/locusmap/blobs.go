package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/blobstore/httpfs"
	"github.com/kailas-cloud/locusmap/internal/blobstore/kv"
	minioblob "github.com/kailas-cloud/locusmap/internal/blobstore/minio"
	s3blob "github.com/kailas-cloud/locusmap/internal/blobstore/s3"
	"github.com/kailas-cloud/locusmap/internal/config"
	dbRedis "github.com/kailas-cloud/locusmap/internal/db/redis"
	"github.com/kailas-cloud/locusmap/internal/metrics"
)

// blobStore is the assembled store plus its teardown.
type blobStore struct {
	blobstore.Store
	close func()
}

// Ping reports backend connectivity; local stores are always reachable.
func (b *blobStore) Ping(ctx context.Context) error {
	if p, ok := b.Store.(blobstore.Pinger); ok {
		return p.Ping(ctx) //nolint:wrapcheck // store errors carry the op
	}
	return nil
}

// openBlobStore assembles the decorator chain: driver -> Compressed -> Instrumented.
func openBlobStore(ctx context.Context, cfg config.BlobStoreConfig, logger *zap.Logger) (*blobStore, error) {
	base, closeFn, err := openDriver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store := base
	if cfg.Compress {
		cs, err := blobstore.NewCompressedStore(store)
		if err != nil {
			closeFn()
			return nil, fmt.Errorf("compressed store: %w", err)
		}
		store = cs
	}

	// Instrumented (outermost)
	store = blobstore.NewInstrumentedStore(store, metrics.BlobObserver{Driver: cfg.Driver})
	return &blobStore{Store: store, close: closeFn}, nil
}

func openDriver(ctx context.Context, cfg config.BlobStoreConfig, logger *zap.Logger) (blobstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverLocal:
		return blobstore.NewLocalStore(cfg.Local.Dir), noop, nil

	case config.DriverMemory:
		return blobstore.NewMemoryStore(), noop, nil

	case config.DriverRedis:
		db, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		timeout := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := db.WaitForReady(ctx, timeout); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
		ttl := time.Duration(cfg.Redis.TTLSec) * time.Second
		return kv.NewStore(db, cfg.Prefix).WithTTL(ttl), db.Close, nil

	case config.DriverMinio:
		s, err := minioblob.New(minioblob.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Secure:    cfg.Minio.Secure,
			Bucket:    cfg.Minio.Bucket,
			Prefix:    cfg.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio store: %w", err)
		}
		return s, noop, nil

	case config.DriverS3:
		s, err := s3blob.New(ctx, s3blob.Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 store: %w", err)
		}
		return s, noop, nil

	case config.DriverHTTP:
		return httpfs.New(httpfs.Config{
			BaseURL: cfg.HTTP.BaseURL,
			Dir:     cfg.HTTP.Dir,
			Timeout: time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		}), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown blobstore driver %q", cfg.Driver)
	}
}
