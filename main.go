package main

import (
	"log"
	"os"
	"strconv"

	"polymarket-relations/config"
	"polymarket-relations/handlers"
	"polymarket-relations/middleware"
	"polymarket-relations/service"
	"polymarket-relations/storage"
	"polymarket-relations/syncer"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("RELATIONS_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := storage.New(cfg.Data.DBPath)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer store.Close()

	svc, err := service.NewService(store, cfg)
	if err != nil {
		log.Fatalf("failed to init service: %v", err)
	}

	// Start the background recompute worker
	worker := syncer.NewAnalysisWorker(svc, cfg)
	worker.Start()
	defer worker.Stop()

	log.Printf("[main] analysis worker started (%d-minute refresh)", cfg.Analysis.RefreshMinutes)

	// Set up router
	r := gin.Default()
	r.Use(middleware.BasicAuth())

	// Initialize handlers
	h := handlers.NewHandler(cfg, svc)

	// Routes
	r.GET("/api/relationships", h.GetRelationships)
	r.GET("/api/roles", h.GetRoles)
	r.GET("/api/roles/:id", middleware.ValidateTraderID(), h.GetTraderRole)
	r.GET("/api/frontrun", h.GetFrontRunOpportunities)
	r.GET("/api/correlations", h.GetCorrelations)
	r.GET("/api/summary", h.GetSummary)
	r.POST("/api/analyze", h.RunAnalysis)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	log.Printf("Server starting on http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
