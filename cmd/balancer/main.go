package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/redirect-balancer/config"
	"github.com/angeloszaimis/redirect-balancer/internal/handler"
	"github.com/angeloszaimis/redirect-balancer/internal/healthcheck"
	"github.com/angeloszaimis/redirect-balancer/internal/httpserver"
	"github.com/angeloszaimis/redirect-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/redirect-balancer/internal/metrics"
	"github.com/angeloszaimis/redirect-balancer/internal/registry"
	"github.com/angeloszaimis/redirect-balancer/internal/strategy"
	"github.com/angeloszaimis/redirect-balancer/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metricsCollector := metrics.NewCollector(metricsBufferSize, log)
	metricsCollector.Start(ctx)

	strat := createStrategy(log, cfg.Strategy.Type)
	lb := newLoadBalancer(cfg, strat, log, metricsCollector)

	if _, err := lb.Refresh(ctx); err != nil {
		log.Error("Failed to build initial server table", slog.Any("err", err))
		os.Exit(1)
	}

	pages, err := handler.LoadPages(cfg.Pages.Dir)
	if err != nil {
		log.Error("Failed to load response pages", slog.String("dir", cfg.Pages.Dir), slog.Any("err", err))
		os.Exit(1)
	}

	dispatchHandler := handler.NewDispatchHandler(log, lb, pages, metricsCollector)

	srv, err := httpserver.New(cfg.Server.Address, dispatchHandler, cfg.Server.IdleTimeout, rebuildOnIdle(lb, log), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	if err := srv.Listen(); err != nil {
		log.Error("Failed to listen", slog.Any("err", err))
		os.Exit(1)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Address != "" {
		metricsSrv = startMetricsServer(cfg.Metrics.Address, setupRouter(metricsCollector, lb, cfg.Strategy.Type), log)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running load balancer", slog.Any("err", err))
			os.Exit(1)
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics server", slog.Any("err", err))
		}
	}
}

func newLoadBalancer(cfg *config.Config, strat strategy.Strategy, log *slog.Logger, collector *metrics.Collector) *loadbalancer.LoadBalancer {
	source := &registry.File{Path: cfg.Registry.File, Logger: log}

	prober := healthcheck.NewProber(healthcheck.Options{
		Path:      cfg.Probe.Path,
		Timeout:   cfg.Probe.Timeout,
		Workers:   cfg.Probe.Workers,
		Logger:    log,
		Collector: collector,
	})

	return loadbalancer.NewLoadBalancer(strat, source, prober, log, collector)
}

// rebuildOnIdle refreshes the table whenever the balancer sits idle. A failed
// refresh keeps the previous table.
func rebuildOnIdle(lb *loadbalancer.LoadBalancer, log *slog.Logger) httpserver.IdleFunc {
	return func(ctx context.Context) {
		if _, err := lb.Refresh(ctx); err != nil {
			log.Error("Failed to rebuild server table, keeping the previous one", slog.Any("err", err))
		}
	}
}

func createStrategy(logger *slog.Logger, strategyType string) strategy.Strategy {
	strat, known := strategy.New(strategyType)
	if !known {
		logger.Warn("Unknown strategy, defaulting to latency-weighted", slog.String("requested", strategyType))
	}
	return strat
}

func startMetricsServer(addr string, handler http.Handler, log *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Metrics endpoint listening", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", slog.Any("err", err))
		}
	}()

	return srv
}
