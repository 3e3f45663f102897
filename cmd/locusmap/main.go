package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/locusmap/internal/config"
	"github.com/kailas-cloud/locusmap/internal/domain/fieldconfig"
	logpkg "github.com/kailas-cloud/locusmap/internal/logger"
	"github.com/kailas-cloud/locusmap/internal/metrics"
	recordsrepo "github.com/kailas-cloud/locusmap/internal/repository/records"
	chiTransport "github.com/kailas-cloud/locusmap/internal/transport/chi"
	healthuc "github.com/kailas-cloud/locusmap/internal/usecase/health"
	indexuc "github.com/kailas-cloud/locusmap/internal/usecase/searchindex"
	summaryuc "github.com/kailas-cloud/locusmap/internal/usecase/summary"
	"github.com/kailas-cloud/locusmap/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting locusmap API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("blobstore_driver", cfg.BlobStore.Driver),
		zap.String("index_engine", cfg.Index.Engine),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterBlobMetrics()
	metrics.RegisterIndexMetrics()

	ctx := context.Background()
	blobs, err := openBlobStore(ctx, cfg.BlobStore, logger)
	if err != nil {
		logger.Fatal("Failed to open blob store", zap.Error(err))
	}
	defer blobs.close()

	dataCfg, err := fieldconfig.Validate(cfg.Fields.Data.Definition())
	if err != nil {
		logger.Fatal("Invalid data field config", zap.Error(err))
	}
	nodeCfg, err := fieldconfig.Validate(cfg.Fields.Nodes.Definition())
	if err != nil {
		logger.Fatal("Invalid node field config", zap.Error(err))
	}

	repo := recordsrepo.New(blobs, logger).WithPaths(cfg.Data.RecordsPath, cfg.Data.NodesPath)
	records, err := repo.LoadRecords(ctx)
	if err != nil {
		logger.Fatal("Failed to load records", zap.Error(err))
	}
	nodes, err := repo.LoadNodes(ctx)
	if err != nil {
		logger.Fatal("Failed to load nodes", zap.Error(err))
	}
	logger.Info("Session loaded",
		zap.Int("records", records.Len()),
		zap.Int("nodes", nodes.Len()),
	)

	engine, err := indexuc.NewEngine(cfg.Index.Engine, cfg.Index.TempDir)
	if err != nil {
		logger.Fatal("Failed to create search engine", zap.Error(err))
	}
	manager := indexuc.New(blobs, engine, records.All(),
		indexuc.WithBlobName(cfg.Data.IndexPath),
		indexuc.WithPersistTimeout(time.Duration(cfg.Index.PersistTimeoutSec)*time.Second),
		indexuc.WithLogger(logger),
		indexuc.WithObserver(metrics.IndexObserver{}),
	)
	go func() {
		// Outcome is reported through /v1/index and /health.
		if err := manager.Load(context.Background()); err != nil {
			logger.Error("Search index unavailable", zap.Error(err))
		}
	}()

	// Use case services
	summarySvc := summaryuc.NewService(records, nodes, summaryuc.New(dataCfg), summaryuc.New(nodeCfg))
	healthSvc := healthuc.New(blobs, manager)

	server := chiTransport.NewServer(summarySvc, manager, healthSvc, chiTransport.Limits{
		Default: cfg.Index.DefaultLimit,
		Max:     cfg.Index.MaxLimit,
	}, logger)
	r := chiTransport.NewRouter(server, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Waits for a pending index write.
	if err := manager.Close(); err != nil {
		logger.Error("Error closing search index", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
