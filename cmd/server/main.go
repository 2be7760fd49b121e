// Package main is the entry point for the fellow dashboard server.
//
// main() does three things and nothing else:
//  1. Set up the structured logger
//  2. Load configuration from the environment (boot failure if incomplete)
//  3. Create and start the server
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, ...).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/arefin/fellowdash/internal/config"
	"github.com/arefin/fellowdash/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
