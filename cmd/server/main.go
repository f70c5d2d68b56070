package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playpong/backend/internal/api"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/migrations"
	"github.com/playpong/backend/internal/records"
	"github.com/playpong/backend/internal/redis"
	"github.com/playpong/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database. Guests can play without one, so a failure degrades
	// to memory-only operation instead of aborting.
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Printf("[STARTUP] Database unavailable, ranked persistence disabled: %v", err)
		db = nil
	} else {
		defer db.Close()
	}

	// Run migrations on start if requested
	if db != nil && os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("[STARTUP] Redis unavailable, match event publishing disabled: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	store := records.NewStore(db)

	// WebSocket hub and game-side coordinators
	hub := ws.NewHub()
	go hub.Run()

	rooms := game.NewRoomManager(hub, store, rdb, cfg)
	queue := game.NewQueue(store)
	matchmaker := game.NewMatchmaker(queue, rooms, hub, cfg)
	challenges := game.NewChallengeManager(rooms, cfg)

	go matchmaker.Run(context.Background())
	rooms.StartRoomSweeper(context.Background())

	wsHandler := ws.NewHandler(hub, queue, matchmaker, rooms, challenges, store, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, wsHandler, queue, rooms, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayPong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
