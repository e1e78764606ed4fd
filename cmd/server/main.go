// Package main is the entry point for the item catalog server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (.env file and environment)
// 2. Create the logger
// 3. Hand both to internal/server and start it
//
// Everything else (database, sessions, OAuth providers, routes) is wired in
// internal/server so it can be built from tests without a process.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/item-catalog/internal/config"
	"github.com/sakif/item-catalog/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load reads .env when present, then the environment. A bad value
	// (short SESSION_SECRET, unknown SESSION_BACKEND, ...) stops startup here.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_LEVEL picks the level: debug (default), info, warn or error.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
