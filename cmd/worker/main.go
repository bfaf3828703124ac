package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"polymarket-relations/config"
	"polymarket-relations/service"
	"polymarket-relations/storage"
	"polymarket-relations/syncer"
)

// Headless analysis worker backed by Postgres + Redis. Runs the full
// relationship recompute on the configured interval; the web process serves
// the persisted reports.
func main() {
	log.Println("[Worker] Starting relationship analysis worker...")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("[Worker] No .env file found, using environment variables")
	}

	// Load config
	cfgPath := os.Getenv("RELATIONS_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[Worker] Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := storage.NewPostgres()
	if err != nil {
		log.Fatalf("[Worker] Failed to init storage: %v", err)
	}
	defer store.Close()

	svc, err := service.NewService(store, cfg)
	if err != nil {
		log.Fatalf("[Worker] Failed to init service: %v", err)
	}

	worker := syncer.NewAnalysisWorker(svc, cfg)
	worker.Start()
	defer worker.Stop()
	log.Printf("[Worker] Analysis loop started (%d-minute refresh)", cfg.Analysis.RefreshMinutes)

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[Worker] Running... Press Ctrl+C to stop")

	// Wait for shutdown signal
	<-stop
	log.Println("[Worker] Shutting down...")
}
