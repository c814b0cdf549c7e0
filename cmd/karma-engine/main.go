// Karma Reward Engine - gamified surprise-box decisions for user activity.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/api"
	"github.com/kaushiksai711/Karma-AI/internal/bus"
	"github.com/kaushiksai711/Karma-AI/internal/cache"
	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/engine"
	"github.com/kaushiksai711/Karma-AI/internal/ledger"
	"github.com/kaushiksai711/Karma-AI/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "1.0.0"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration: defaults, then the optional JSON file, then
	// KARMA_* environment overrides.
	configPath := os.Getenv("KARMA_CONFIG")
	cfg, err := domain.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(newLogHandler(cfg.Logging))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting karma engine",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"config", configPath,
		"ledger", cfg.Ledger.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"oracle", cfg.Oracle.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Ledger
	led, err := ledger.New(cfg.Ledger)
	if err != nil {
		slog.Error("failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()
	slog.Info("ledger initialized", "driver", cfg.Ledger.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize decision Engine. This validates the rule catalog and
	// the oracle's feature width, so a bad config fails here.
	eng, err := engine.New(cfg, led, cacheImpl, busImpl)
	if err != nil {
		slog.Error("failed to initialize engine", "error", err)
		os.Exit(1)
	}
	slog.Info("engine initialized",
		"rules_count", eng.RulesCount(),
		"rules_dropped", eng.RulesDropped(),
		"oracle", eng.OracleInfo().Type,
		"threshold", eng.Threshold(),
	)

	// Start retention sweeper
	sweeper := worker.NewSweeper(led, busImpl, cfg.Ledger)
	sweeper.Start()

	// Initialize Server
	srv := api.NewServer(cfg.Server, eng, led, cacheImpl, busImpl, Version, configPath)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("karma engine is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the sweeper first so no sweep races the ledger close.
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("karma engine shutdown complete")
}

func newLogHandler(cfg domain.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==============================================")
	fmt.Println("                 KARMA ENGINE")
	fmt.Println("        Surprise boxes for good citizens.")
	fmt.Println("  ==============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Ledger:   %s\n", cfg.Ledger.Driver)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /check-surprise-box - Check today's surprise box")
	fmt.Println("    GET  /rules              - List the active rule catalog")
	fmt.Println("    GET  /rewards/{date}     - List awards for a day")
	fmt.Println("    POST /reload             - Hot-reload configuration")
	fmt.Println("    GET  /health             - Health check")
	fmt.Println("    GET  /version            - Service and model versions")
	fmt.Println("    GET  /metrics            - Prometheus metrics")
	fmt.Println()
}
