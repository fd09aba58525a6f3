package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatumlabs/fatum/internal/adapters"
	"github.com/fatumlabs/fatum/internal/application/services"
	"github.com/fatumlabs/fatum/internal/config"
	"github.com/fatumlabs/fatum/internal/logger"
	"github.com/fatumlabs/fatum/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info("Starting fatum")
	logger.Info("Beacon URL: %s (chain %s)", cfg.BeaconBaseURL, cfg.BeaconChainName)
	logger.Info("Harvest interval: %s", cfg.HarvestIntervalDuration())

	store, err := adapters.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	beacon := adapters.NewCurbyHTTPAdapter(cfg.BeaconBaseURL, cfg.BeaconChainName, cfg.BeaconTimeoutDuration())
	acquirer := services.NewEntropyAcquirer(beacon)
	harvester := services.NewHarvester(ctx, beacon, store, cfg.HarvestIntervalDuration())

	api := server.New(acquirer, harvester, store)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Routes(),
	}

	go func() {
		logger.Info("Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	// Handle SIGINT / SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Warn("Received signal %s, shutting down...", sig)
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed: %v", err)
	}
}
