package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/app"
	"ledger/internal/config"
	"ledger/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise ledger", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := server.NewServer(application.Service, application.Store, logger)
	port, err := srv.Start(cfg.Server.Port)
	if err != nil {
		logger.Error("Failed to start server", "error", err)
		cleanup()
		os.Exit(1)
	}

	logger.Info("Server started successfully", "port", port)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		cleanup()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
