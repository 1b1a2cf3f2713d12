package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docforge/internal/compression"
	"docforge/internal/config"
	"docforge/internal/database"
	"docforge/internal/engine"
	"docforge/internal/server"
	"docforge/internal/store"
	"docforge/internal/tools"
)

func main() {
	cfg := config.New()
	logger := cfg.Logger

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		// Preferences and statistics degrade gracefully; processing does not
		// depend on them.
		logger.Warn("Database unavailable, running without preferences", "error", err)
		db = nil
	}

	artifacts, err := store.New(cfg.ArtifactDir, cfg.ArtifactTTL, cfg.SweepInterval, logger)
	if err != nil {
		logger.Error("Failed to initialize artifact store", "error", err)
		os.Exit(1)
	}
	artifacts.Start()
	defer artifacts.Stop()

	ghostscript := tools.NewGhostscript(cfg.GhostscriptPath, cfg.ToolTimeout, nil, logger)
	compressor := compression.NewEngine(ghostscript, cfg.WorkingDir, logger)
	dispatcher := engine.New(compressor, artifacts, db, cfg.RiskySizeBytes, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(dispatcher, artifacts, db, ghostscript, cfg.MaxUploadBytes, logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown did not complete cleanly", "error", err)
	}
}
