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

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/httpserver"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/item"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
	sdk "github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/sdk/go"
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

	svcCfg := cfg.Services.Item
	logger.Info("item service starting", zap.Int("port", svcCfg.Port))

	if err := os.MkdirAll(filepath.Dir(svcCfg.DataFile), 0o755); err != nil {
		logger.Error("creating data directory failed", zap.Error(err))
		os.Exit(1)
	}
	coll, err := jsondb.Open(svcCfg.DataFile)
	if err != nil {
		logger.Error("opening item store failed", zap.Error(err))
		os.Exit(1)
	}

	repo := item.NewRepository(coll)
	if err := repo.Seed(); err != nil {
		logger.Error("seeding catalog failed", zap.Error(err))
		os.Exit(1)
	}
	handler := item.NewHandler(repo, logger)

	srv := httpserver.New("item-service", svcCfg.ListenAddress, svcCfg.Port, logger)
	handler.RegisterRoutes(srv.Echo())
	srv.Start()

	client, err := sdk.NewClient(&sdk.Config{
		ServerAddr:        cfg.Registry.Addr,
		ServiceName:       "item-service",
		ServiceURL:        svcCfg.URL,
		HeartbeatInterval: cfg.Registry.HeartbeatInterval,
	})
	if err != nil {
		logger.Error("building registry client failed", zap.Error(err))
		os.Exit(1)
	}
	if err := client.Register(context.Background()); err != nil {
		logger.Warn("initial registration failed, heartbeat loop will retry", zap.Error(err))
	}
	client.StartHeartbeat()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Close(shutdownCtx); err != nil {
		logger.Warn("deregistering failed", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}

	logger.Info("item service stopped")
}
