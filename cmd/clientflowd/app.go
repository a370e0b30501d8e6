package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/taxdesk/clientflow/config"
	"github.com/taxdesk/clientflow/notify"
	"github.com/taxdesk/clientflow/service"
	"github.com/taxdesk/clientflow/storage"
	"github.com/taxdesk/clientflow/workflow"
)

func run(ctx context.Context, configPath string) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	registry, err := workflow.NewRegistry(catalog)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Drain() //nolint:errcheck

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}

	store, err := storage.NewStore(ctx, js, logger)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	metrics := workflow.NewMetrics(promRegistry)

	engine := workflow.NewEngine(registry, store,
		workflow.WithNotifier(notify.New(nc, logger, metrics)),
		workflow.WithLogger(logger),
		workflow.WithMetrics(metrics),
	)

	consumers := service.New(engine, cfg.Consumer, logger)

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		if err := consumers.Run(groupCtx, js); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return serveMetrics(groupCtx, cfg.Metrics.ListenAddr, promRegistry, logger)
	})

	if cfg.Catalog.Path != "" {
		group.Go(func() error {
			return watchCatalog(groupCtx, cfg.Catalog.Path, logger)
		})
	}

	logger.Info("clientflowd started",
		slog.String("version", Version),
		slog.String("nats_url", cfg.NATS.URL),
		slog.String("metrics_addr", cfg.Metrics.ListenAddr))

	err = group.Wait()
	logger.Info("clientflowd stopped")
	return err
}

func loadCatalog(path string) (*workflow.Catalog, error) {
	if path == "" {
		return workflow.DefaultCatalog(), nil
	}
	return workflow.LoadCatalog(path)
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// watchCatalog watches the catalog file for changes. The registry is
// immutable once loaded, so a change only logs a restart-required
// warning; it is never hot-applied.
func watchCatalog(ctx context.Context, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch catalog %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				logger.Warn("catalog file changed on disk, restart required to apply",
					slog.String("path", path))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", slog.String("error", err.Error()))
		}
	}
}
