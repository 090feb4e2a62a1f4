package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/hexmove/internal/config"
	"github.com/gravitas-games/hexmove/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// empty path runs on the embedded defaults
	configPath := os.Getenv("CONFIG_PATH")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", configPath, "err", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", "path", configPath, "addr", cfg.Server.Addr())

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "err", err)
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Server.Addr()); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "err", err)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error("error during shutdown", "err", err)
	}

	logger.Info("server stopped")
}
