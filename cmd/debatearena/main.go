package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/debatearena/debatearena/internal/config"
	"github.com/debatearena/debatearena/internal/debate"
	"github.com/debatearena/debatearena/internal/events"
	"github.com/debatearena/debatearena/internal/llm"
	"github.com/debatearena/debatearena/internal/transport"
)

var configPath = flag.String("config", "", "path to a YAML config file (optional)")

func main() {
	// Load .env if present so backend URLs and ports can live next to the
	// binary during development. Environment variables set directly still win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "debatearena: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client := llm.NewClient(cfg.Ollama.BaseURL, logger)
	registry := debate.NewRegistry(&debate.RegistryConfig{
		MaxConcurrent: cfg.Debate.MaxConcurrent,
		Broadcast: &events.BroadcasterConfig{
			BufferSize:      cfg.Broadcast.BufferSize,
			DeliveryTimeout: cfg.Broadcast.DeliveryTimeout,
			MaxSubscribers:  cfg.Broadcast.MaxSubscribers,
		},
	}, client, logger)

	server := transport.NewServer(cfg, registry, client, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("debate arena up",
		zap.String("addr", cfg.Addr()),
		zap.String("backend", cfg.Ollama.BaseURL),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced down", zap.Error(err))
	}
	registry.Shutdown()

	logger.Info("shutdown complete")
	return nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
