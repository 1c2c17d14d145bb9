package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sxyu/watplot/internal/api"
	"github.com/sxyu/watplot/internal/config"
	"github.com/sxyu/watplot/internal/data"
)

// serve runs the preview server over the configured files plus path, if
// given, until interrupted.
func serve(cfg *config.Config, path string, budget int64) error {
	if path != "" {
		cfg.Data.Add(config.FileID(path), path)
	}
	fileIDs := cfg.Data.FileIDs()
	if len(fileIDs) == 0 {
		return errors.New("no files to serve: pass a file or list files under data in the config")
	}
	defaultFile := cfg.Data.DefaultFile
	if path != "" {
		defaultFile = config.FileID(path)
	}

	log.Printf("Starting watplot server on port %d", cfg.Server.Port)

	// Initialize cache manager (shared across all files)
	cacheManager, err := newCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheManager.Close()

	registry := api.NewFileRegistry(defaultFile)
	defer registry.Close()

	log.Printf("Initializing %d file(s), default: %s", len(fileIDs), defaultFile)
	for _, id := range fileIDs {
		p := cfg.Data.Files[id]
		f, err := data.Load(p, budget)
		if err != nil {
			return fmt.Errorf("file %q: %w", id, err)
		}
		rec := f.Meta()
		log.Printf("  [%s] Loaded from: %s (%s)", id, p, f.FormatName())
		log.Printf("    Channels: %d, Integrations: %d, Range: %s", rec.Header.NChans, rec.NInts, rec.DataRect)
		registry.Register(id, newViewService(id, f, cfg, cacheManager, budget))
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		Render: api.RenderDefaults{
			Width:    cfg.Render.Width,
			Height:   cfg.Render.Height,
			Colormap: cfg.Render.DefaultColormap,
			LogScale: cfg.Render.LogScale,
			Axes:     cfg.Render.ShowAxes(),
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
	return nil
}
