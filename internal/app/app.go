// Package app wires configuration, storage, the result cache and the
// benchmark pool into one process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/brainscore/brainscore/internal/api/http"
	"github.com/brainscore/brainscore/internal/assembly"
	"github.com/brainscore/brainscore/internal/benchmark"
	"github.com/brainscore/brainscore/internal/benchmark/registry"
	"github.com/brainscore/brainscore/internal/benchmark/regressing"
	"github.com/brainscore/brainscore/internal/cache"
	"github.com/brainscore/brainscore/internal/config"
	"github.com/brainscore/brainscore/internal/logging"
	"github.com/brainscore/brainscore/internal/observability"
	"github.com/brainscore/brainscore/internal/server"
	"github.com/brainscore/brainscore/internal/storage"
)

// statsWindow is how long an idle benchmark stays in the usage ranking.
const statsWindow = time.Hour

// App holds the shared resources of a brainscore process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *observability.Metrics
	stats    *observability.LoadStats

	storage    storage.ObjectStorage
	assemblies *assembly.StorageSource
	memo       *cache.Memo
	pool       *benchmark.Pool
	shutdown   *server.Manager
}

// New resolves and validates cfg, then opens storage and the result cache
// and builds the benchmark pool. Benchmarks themselves are constructed on
// first use.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
		registry: prometheus.NewRegistry(),
		stats:    observability.NewLoadStats(statsWindow),
	}
	a.shutdown = server.NewManager(server.Config{Timeout: cfg.HTTP.WriteTimeout}, a.logger)
	if cfg.Metrics.Enabled {
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = observability.NewMetrics(a.registry)
	}

	st, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.storage = st
	a.logger.Info("storage initialized", "type", cfg.Storage.Type)

	store, err := cache.Open(ctx, cfg.Cache, st, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open result cache: %w", err)
	}
	a.memo = cache.NewMemo(store, cache.Options{
		Disable: cfg.Cache.Disable,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	a.shutdown.Register("result cache", a.memo)
	a.logger.Info("result cache opened", "backend", cfg.Cache.Backend, "path", cfg.Cache.Path)

	a.assemblies = assembly.NewStorageSource(st, cfg.Assemblies.Prefix)

	pool, err := registry.New(regressing.Deps{
		Assemblies: a.assemblies,
		Ceilings:   a.memo,
		Logger:     a.logger,
		Metrics:    a.metrics,
		Stats:      a.stats,
	},
		benchmark.WithLogger(a.logger),
		benchmark.WithMetrics(a.metrics),
		benchmark.WithLoadStats(a.stats),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pool = pool
	return a, nil
}

// OpenStorage opens the configured object storage.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case config.StorageLocal:
		return storage.NewLocalStorage(cfg.Path)
	case config.StorageS3:
		return storage.NewS3Storage(ctx, cfg.S3.Bucket, storage.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() *slog.Logger { return a.logger }

// Pool returns the benchmark pool.
func (a *App) Pool() *benchmark.Pool { return a.pool }

// Memo returns the result cache.
func (a *App) Memo() *cache.Memo { return a.memo }

func (a *App) Storage() storage.ObjectStorage { return a.storage }

func (a *App) Assemblies() *assembly.StorageSource { return a.assemblies }

func (a *App) Stats() *observability.LoadStats { return a.stats }

// Handler returns the HTTP API, including health and metrics endpoints.
func (a *App) Handler() http.Handler {
	var gatherer prometheus.Gatherer
	if a.cfg.Metrics.Enabled {
		gatherer = a.registry
	}
	h := httpapi.NewHandler(a.pool, a.memo, a.stats, a.logger)
	return a.shutdown.Middleware(httpapi.NewMux(h, a.logger, gatherer, a.cfg.Metrics.Path))
}

// Serve runs the HTTP API until ctx is done, then shuts down and closes
// every resource.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	pruneCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pruneStats(pruneCtx)

	return a.shutdown.ListenAndServe(ctx, srv)
}

func (a *App) pruneStats(ctx context.Context) {
	ticker := time.NewTicker(statsWindow / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.stats.Prune()
		}
	}
}

// Close releases every resource. It is safe to call after Serve returns.
func (a *App) Close() error {
	return a.shutdown.Shutdown(context.Background(), nil)
}
