// Package app wires configuration, stores, services and transports into the
// process entry points under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrijs2005/imagevault/internal/api"
	"github.com/dmitrijs2005/imagevault/internal/awsx"
	"github.com/dmitrijs2005/imagevault/internal/blobstore"
	"github.com/dmitrijs2005/imagevault/internal/config"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
	"github.com/dmitrijs2005/imagevault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/imagevault/internal/retry"
	"github.com/dmitrijs2005/imagevault/internal/services"
	"github.com/dmitrijs2005/imagevault/internal/thumbnail"
	"github.com/dmitrijs2005/imagevault/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// seams for tests
var (
	loadAWSConfig  = awsx.Load
	newRepoManager = repomanager.New
)

type App struct {
	config *config.Config
	logger logging.Logger

	repos repomanager.RepositoryManager
	blobs blobstore.Store

	Uploads   *services.UploadService
	Query     *services.QueryService
	Deletions *services.DeletionService
	Worker    *worker.Processor
	Handler   *api.Handler
}

// NewLogger builds the process logger from cfg, writing to stdout.
func NewLogger(cfg *config.Config) (logging.Logger, error) {
	l, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// NewApp builds every component for cfg. The caller owns Close.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	var awsCfg aws.Config
	if cfg.MetadataBackend == config.BackendDynamoDB || cfg.BlobBackend == config.BlobS3 {
		c, err := loadAWSConfig(ctx, awsx.Options{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		awsCfg = c
	}

	repos, err := newRepoManager(ctx, repomanager.Options{
		Backend:        cfg.MetadataBackend,
		Table:          cfg.MetadataTable,
		DynamoEndpoint: cfg.DynamoEndpoint,
		DSN:            cfg.DatabaseDSN,
		AWS:            awsCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata store init error: %w", err)
	}

	var raw blobstore.Store
	switch cfg.BlobBackend {
	case config.BlobMemory:
		raw = blobstore.NewMemoryStore(cfg.BlobBucket)
	default:
		raw = blobstore.NewS3Store(awsCfg, blobstore.S3Options{
			Bucket:       cfg.BlobBucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			UsePathStyle: cfg.S3UsePathStyle,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	}

	policy := retryPolicy(cfg, logger)
	repo := images.NewRetryingRepository(repos.Images(), policy)
	blobs := blobstore.NewRetryingStore(raw, policy)

	a := &App{
		config: cfg,
		logger: logger,
		repos:  repos,
		blobs:  blobs,
	}

	a.Uploads = services.NewUploadService(repo, blobs, services.UploadConfig{
		KeyPrefix:        cfg.KeyPrefix,
		CredentialExpiry: cfg.CredentialExpiry,
		MaxUploadSize:    cfg.MaxUploadSize,
	}, logger)
	a.Query = services.NewQueryService(repo, blobs, services.QueryConfig{
		CredentialExpiry: cfg.CredentialExpiry,
		DefaultPageSize:  cfg.DefaultPageSize,
	})
	a.Deletions = services.NewDeletionService(repo, blobs, logger)
	a.Handler = api.NewHandler(a.Uploads, a.Query, a.Deletions, logger)

	a.Worker = worker.NewProcessor(repo, blobs,
		thumbnail.NewImagingGenerator(cfg.ThumbnailSize, cfg.ThumbnailQuality),
		worker.Config{
			KeyPrefix:               cfg.KeyPrefix,
			ThumbnailPrefix:         cfg.ThumbnailPrefix,
			ThumbnailMaxSource:      cfg.ThumbnailMaxSource,
			StoreTimeout:            cfg.StoreTimeout,
			MaxReceiveCount:         cfg.MaxReceiveCount,
			Concurrency:             cfg.WorkerConcurrency,
			ReportBatchItemFailures: cfg.ReportBatchItemFailures,
		}, logger)

	return a, nil
}

func retryPolicy(cfg *config.Config, logger logging.Logger) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = cfg.RetryMaxAttempts
	p.BaseDelay = cfg.RetryBaseDelay
	p.MaxDelay = cfg.RetryMaxDelay
	p.OnRetry = func(err error, wait time.Duration) {
		logger.Warn(context.Background(), "retrying store call", "wait", wait, "error", err)
	}
	return p
}

// Gateway returns the Lambda API handler.
func (a *App) Gateway() *api.Gateway {
	return api.NewGateway(a.Handler)
}

// Blobs exposes the object store, mainly so local runs can inspect it.
func (a *App) Blobs() blobstore.Store {
	return a.blobs
}

func (a *App) Close() error {
	return a.repos.Close()
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API on config.HTTPAddr until ctx is cancelled or a
// termination signal arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.logger.Info(ctx, "Starting app...", "addr", a.config.HTTPAddr, "metadata", a.config.MetadataBackend, "blobs", a.config.BlobBackend)
	a.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:              a.config.HTTPAddr,
		Handler:           api.NewRouter(a.Handler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a.serve(ctx, srv)
}

func (a *App) serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	a.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	wg.Wait()
	return runErr
}
