package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/broker"
	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/config"
	"github.com/gromdron/bitrix-push-workspace/internal/logging"
	"github.com/gromdron/bitrix-push-workspace/internal/metrics"
	"github.com/gromdron/bitrix-push-workspace/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.General.Workers > 0 {
		runtime.GOMAXPROCS(cfg.General.Workers)
	}

	metricsRegistry := metrics.NewRegistry()

	signer := channel.NewSignature(cfg.Security.Key)
	parser := channel.NewParser(cfg.Security.Enabled, signer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := broker.New(logger, metricsRegistry)
	go b.Run(ctx)

	transportServer := transport.NewServer(cfg, logger, parser, b, metricsRegistry)
	if err := transportServer.Start(ctx); err != nil {
		logger.Fatal("transport start failed", zap.Error(err))
	}

	metricsErrCh := make(chan error, 1)
	if cfg.Metrics.Enabled {
		go func() {
			metricsErrCh <- runMetricsServer(ctx, cfg, metricsRegistry, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-metricsErrCh:
		if err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
		stop()
	}

	transportServer.Stop()
	logger.Info("transport stopped")
}

// runMetricsServer serves Prometheus metrics on their own listener,
// separate from the push traffic, so a scrape never queues behind a
// slow publish or a stalled subscriber upgrade.
func runMetricsServer(ctx context.Context, cfg config.Config, reg *metrics.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Endpoint, reg.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics http server starting", zap.String("addr", cfg.Metrics.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics http server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
