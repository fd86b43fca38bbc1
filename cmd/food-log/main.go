// cmd/food-log/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mcp-food-log/internal/analyzer"
	"mcp-food-log/internal/config"
	"mcp-food-log/internal/server"
	"mcp-food-log/pkg/logging"
)

var (
	port    = flag.Int("port", 8011, "Port for HTTP transport")
	host    = flag.String("host", "0.0.0.0", "Host address")
	address = flag.String("address", "", "Address (alias for host)")
	dbPath  = flag.String("db-path", "/data/food-log.db", "Database path")
	envFile = flag.String("env-file", ".env", "Optional dotenv file with credentials")
	version = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("mcp-food-log version 1.0.0")
		os.Exit(0)
	}

	logging.Setup()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	// .env may have set LOG_LEVEL
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	// Use address if provided, otherwise use host
	hostAddr := *host
	if *address != "" {
		hostAddr = *address
	}

	foodAnalyzer, err := analyzer.New(cfg.Analyzer, analyzer.WithJPEGQuality(cfg.JPEGQuality))
	if err != nil {
		slog.Error("Failed to create analyzer", "error", err, "provider", cfg.Analyzer.Provider)
		os.Exit(1)
	}

	srv, err := server.NewFoodLogServer(&server.Config{
		Host:   hostAddr,
		Port:   *port,
		DBPath: *dbPath,
	}, foodAnalyzer)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	slog.Info("Storage initialized", "database", *dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")
	cancel()
	if err := srv.Stop(); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
