package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/thraizz/mtg-horde-go/internal/config"
	"github.com/thraizz/mtg-horde-go/internal/game"
	"github.com/thraizz/mtg-horde-go/internal/game/cards"
	"github.com/thraizz/mtg-horde-go/internal/server"
	"github.com/thraizz/mtg-horde-go/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting horde server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	catalog, err := cards.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	logger.Info("card catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Strings("decks", catalog.Names()),
	)

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open save store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	gameMgr := game.NewManager(catalog, logger)
	if cfg.Game.Seed != 0 {
		seed := cfg.Game.Seed
		gameMgr.SetSeedSource(func() int64 { return seed })
		logger.Warn("fixed random seed configured", zap.Int64("seed", seed))
	}
	logger.Info("game manager initialized")

	hub := server.NewHub(gameMgr, store, cfg.Server, cfg.Game, logger)
	go hub.Run(ctx)

	if cfg.Autosave.Enabled {
		autosaver, err := server.NewAutosaver(gameMgr, store, cfg.Autosave.Interval, logger)
		if err != nil {
			logger.Fatal("failed to create autosaver", zap.Error(err))
		}
		autosaver.Start()
		defer func() {
			if err := autosaver.Shutdown(); err != nil {
				logger.Warn("autosaver shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("autosave enabled", zap.Duration("interval", cfg.Autosave.Interval))
	}

	httpServer := server.NewServer(cfg.Server, hub, gameMgr, logger)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			logger.Error("HTTP server error", zap.Error(err))
			sigChan <- syscall.SIGTERM
		}
	}()

	logger.Info("horde server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
		zap.String("storage", cfg.Storage.Driver),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	cancel()

	logger.Info("horde server stopped")
}

// initLogger builds the process logger. Unknown levels fall back to info.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.Output) > 0 {
		zapCfg.OutputPaths = cfg.Output
	}
	zapCfg.InitialFields = map[string]any{"service": "horde"}

	return zapCfg.Build()
}
