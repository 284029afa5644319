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

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/auth"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/breaker"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/dispatch"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/httpserver"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/jsondb"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/list"
	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/registry"
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

	svcCfg := cfg.Services.List
	logger.Info("list service starting", zap.Int("port", svcCfg.Port))

	if err := os.MkdirAll(filepath.Dir(svcCfg.DataFile), 0o755); err != nil {
		logger.Error("creating data directory failed", zap.Error(err))
		os.Exit(1)
	}
	coll, err := jsondb.Open(svcCfg.DataFile)
	if err != nil {
		logger.Error("opening list store failed", zap.Error(err))
		os.Exit(1)
	}

	// The list service calls its peers through its own dispatcher, so it
	// keeps a config-seeded peer table and its own breaker state.
	ctx := context.Background()
	peers := registry.NewStore(nil, logger)
	if _, err := peers.Register(ctx, "user-service", cfg.Services.User.URL); err != nil {
		logger.Error("seeding peer table failed", zap.Error(err))
		os.Exit(1)
	}
	if _, err := peers.Register(ctx, "item-service", cfg.Services.Item.URL); err != nil {
		logger.Error("seeding peer table failed", zap.Error(err))
		os.Exit(1)
	}

	breakers := breaker.NewTable(cfg.Breaker.FailureThreshold, cfg.Breaker.OpenDuration)
	dispatcher := dispatch.New(peers, breakers, 0, nil, logger)

	repo := list.NewRepository(coll)
	items := list.NewItemClient(dispatcher)
	checker := auth.NewRemoteChecker(dispatcher, "user-service")
	handler := list.NewHandler(repo, items, checker, logger)

	srv := httpserver.New("list-service", svcCfg.ListenAddress, svcCfg.Port, logger)
	handler.RegisterRoutes(srv.Echo())
	srv.Start()

	client, err := sdk.NewClient(&sdk.Config{
		ServerAddr:        cfg.Registry.Addr,
		ServiceName:       "list-service",
		ServiceURL:        svcCfg.URL,
		HeartbeatInterval: cfg.Registry.HeartbeatInterval,
	})
	if err != nil {
		logger.Error("building registry client failed", zap.Error(err))
		os.Exit(1)
	}
	if err := client.Register(ctx); err != nil {
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

	logger.Info("list service stopped")
}
