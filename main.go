package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentbridge/cms-migration-service/internal/adapters"
	"github.com/contentbridge/cms-migration-service/internal/audit"
	"github.com/contentbridge/cms-migration-service/internal/config"
	"github.com/contentbridge/cms-migration-service/internal/processor"
	"github.com/contentbridge/cms-migration-service/internal/progress"
	"github.com/contentbridge/cms-migration-service/internal/server"
	"github.com/contentbridge/cms-migration-service/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize target store
	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer store.Close()

	// Initialize audit artifact writer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditWriter, err := audit.NewWriter(ctx, cfg.Audit)
	if err != nil {
		log.Fatal("Failed to initialize audit writer:", err)
	}
	defer auditWriter.Close(ctx)

	// Source adapters, in registration order: first responder wins.
	registry := adapters.NewRegistry(
		adapters.NewWordPressAdapter(),
		adapters.NewJSONAdapter(),
	)

	progressStore := progress.NewFileStore(cfg.Progress.FilePath)
	proc := processor.New(store, progressStore, cfg.Media)

	// Initialize HTTP server for API endpoints
	httpServer := server.NewServer(cfg.Server, cfg.Media, registry, proc, progressStore, auditWriter)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.Server.Port)
		if err := httpServer.Start(); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, gracefully shutting down...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown services
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
