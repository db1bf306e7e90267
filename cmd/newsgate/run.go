package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/eugener/newsgate/internal/app"
	"github.com/eugener/newsgate/internal/cache"
	"github.com/eugener/newsgate/internal/config"
	"github.com/eugener/newsgate/internal/provider"
	"github.com/eugener/newsgate/internal/provider/newsapi"
	"github.com/eugener/newsgate/internal/server"
	"github.com/eugener/newsgate/internal/storage/sqlite"
	"github.com/eugener/newsgate/internal/telemetry"
	"github.com/eugener/newsgate/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.Log))

	slog.Info("starting newsgate", "version", version, "addr", cfg.Server.Addr)
	if cfg.Upstream.APIKey == "" {
		slog.Warn("news API key missing, upstream queries will fail until NEWS_API_KEY is set")
	} else {
		slog.Info("news API key loaded")
	}

	ctx := context.Background()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
			Endpoint:       cfg.Telemetry.Tracing.Endpoint,
			SampleRate:     cfg.Telemetry.Tracing.SampleRate,
			ServiceVersion: version,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				slog.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	// Metrics
	var (
		metrics        *telemetry.Metrics
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Cache
	mem, err := cache.NewMemory(cfg.Cache.MaxSize, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	if metrics != nil {
		metrics.RegisterCacheSize(mem.Len)
	}

	// Upstream
	resolver := &dnscache.Resolver{}
	client := newsapi.New(cfg.Upstream.APIKey, cfg.Upstream.BaseURL, provider.NewTransport(resolver))

	var workers []worker.Worker
	if cfg.Upstream.DNSRefresh > 0 {
		workers = append(workers, worker.NewDNSRefresher(resolver, cfg.Upstream.DNSRefresh))
	}

	// Usage ledger (optional)
	newsDeps := app.NewsDeps{Cache: mem, Provider: client, Metrics: metrics}
	serverDeps := server.Deps{
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		CORSOrigins:    cfg.CORS.Origins,
	}
	if cfg.Database.DSN != "" {
		store, err := sqlite.New(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		var opts []worker.RecorderOption
		if metrics != nil {
			opts = append(opts, worker.WithQueueGauge(metrics.UsageQueueLength))
		}
		recorder := worker.NewUsageRecorder(store, opts...)
		workers = append(workers, recorder)

		newsDeps.Usage = recorder
		serverDeps.Usage = store
		serverDeps.ReadyCheck = store.Ping
		slog.Info("usage ledger enabled", "dsn", cfg.Database.DSN)
	}

	serverDeps.News = app.NewNewsService(newsDeps)
	handler := server.New(serverDeps)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	runner := worker.NewRunner(workers...)
	workersDone := make(chan error, 1)
	go func() { workersDone <- runner.Run(workerCtx) }()
	// A nil channel never fires, so an empty runner cannot end the select below.
	workerFailed := workersDone
	if runner.Len() == 0 {
		workerFailed = nil
	}
	workersStopped := false

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("newsgate ready", "addr", cfg.Server.Addr, "cache_ttl", cfg.Cache.TTL)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		return err
	case err := <-workerFailed:
		workersStopped = true
		slog.Error("worker stopped unexpectedly", "error", err)
	}

	// Shutdown: stop accepting requests first so the usage recorder drains
	// every record the last requests produced.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	stopWorkers()
	if !workersStopped {
		select {
		case <-workersDone:
		case <-shutdownCtx.Done():
			slog.Warn("workers did not stop before shutdown timeout")
		}
	}

	slog.Info("newsgate stopped")
	return nil
}
