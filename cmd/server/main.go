package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playarena/backend/internal/api"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/database"
	"github.com/playarena/backend/internal/match"
	"github.com/playarena/backend/internal/media"
	"github.com/playarena/backend/internal/migrations"
	"github.com/playarena/backend/internal/notify"
	"github.com/playarena/backend/internal/redis"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Match lifecycle events fan out through Redis pub/sub
	notify.SetDefault(notify.NewRedisPublisher(rdb))

	// Initialize screenshot storage (if configured)
	if cfg.S3Bucket != "" && cfg.S3AccessKeyID != "" {
		uploader, err := media.NewS3Uploader(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize media storage: %v", err)
		}
		media.SetDefault(uploader)
		log.Printf("[MEDIA] S3 storage initialized (bucket=%s)", cfg.S3Bucket)
	} else {
		log.Printf("[MEDIA] S3 is not configured - screenshot uploads disabled")
	}

	// Start the expired-challenge sweeper
	sweeper := match.NewSweeper(db, cfg)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start challenge sweeper: %v", err)
	}

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, db, rdb, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Stop the sweeper cleanly on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		if err := sweeper.Stop(); err != nil {
			log.Printf("[SWEEPER] Shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	log.Printf("Starting PlayArena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
