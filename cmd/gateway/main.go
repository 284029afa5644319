package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/breaker"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dnsserver"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/gateway"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/metrics"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "", "path to the configuration file")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("api gateway starting",
		zap.Int("port", cfg.Gateway.Port),
		zap.String("snapshot", cfg.Registry.SnapshotPath),
		zap.Bool("dns_enabled", cfg.DNS.Enabled))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Registry store, optionally persisted to a flat file.
	var snapshot *registry.Snapshot
	if cfg.Registry.SnapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Registry.SnapshotPath), 0o755); err != nil {
			logger.Error("creating snapshot directory failed", zap.Error(err))
			os.Exit(1)
		}
		snapshot = registry.NewSnapshot(cfg.Registry.SnapshotPath)
	}
	store := registry.NewStore(snapshot, logger)

	// Deleting the snapshot file is the operator's reset switch.
	var watcher *registry.Watcher
	if snapshot != nil {
		watcher, err = registry.NewWatcher(cfg.Registry.SnapshotPath, store, logger)
		if err != nil {
			logger.Warn("snapshot watcher unavailable", zap.Error(err))
		} else {
			watcher.Start(ctx)
		}
	}

	m := metrics.New()
	breakers := breaker.NewTable(cfg.Breaker.FailureThreshold, cfg.Breaker.OpenDuration)
	dispatcher := dispatch.New(store, breakers, 0, m, logger)

	monitor := registry.NewMonitor(store, registry.MonitorOptions{
		Interval:        cfg.HealthCheck.Interval,
		Timeout:         cfg.HealthCheck.Timeout,
		Path:            cfg.HealthCheck.Path,
		StalenessWindow: cfg.Registry.StalenessWindow,
	}, logger)
	if err := monitor.Start(ctx); err != nil {
		logger.Error("starting health monitor failed", zap.Error(err))
		os.Exit(1)
	}

	srv := gateway.NewServer(cfg, store, dispatcher, m, logger)
	srv.Start()

	var dns *dnsserver.Server
	if cfg.DNS.Enabled {
		dns = dnsserver.NewServer(store, dnsserver.Options{
			ListenAddress: cfg.DNS.ListenAddress,
			Port:          cfg.DNS.Port,
			Protocol:      cfg.DNS.Protocol,
			Domain:        cfg.DNS.Domain,
		}, logger)
		if err := dns.Start(); err != nil {
			logger.Error("starting dns server failed", zap.Error(err))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, draining")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if dns != nil {
		if err := dns.Shutdown(shutdownCtx); err != nil {
			logger.Warn("dns shutdown failed", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown failed", zap.Error(err))
	}
	monitor.Stop()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Warn("closing snapshot watcher failed", zap.Error(err))
		}
	}

	logger.Info("api gateway stopped")
}
