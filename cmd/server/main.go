package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/playuno/backend/internal/api"
	"github.com/playuno/backend/internal/config"
	"github.com/playuno/backend/internal/database"
	"github.com/playuno/backend/internal/game"
	"github.com/playuno/backend/internal/migrations"
	"github.com/playuno/backend/internal/redis"
	"github.com/playuno/backend/internal/ws"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	// Database is optional: without it the results ledger is disabled but
	// gameplay is unaffected.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Println("Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set - results ledger disabled")
	}

	// Redis is optional: without it the event mirror is disabled.
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL not set - event mirror disabled")
	}

	registry := game.NewRegistry(cfg.MaxPlayersPerRoom, cfg.InitialHandSize)
	recorder := game.NewRecorder(db)
	hub := ws.NewHub()
	supervisor := game.NewSupervisor(registry, hub, recorder,
		time.Duration(cfg.TurnSkipGraceSeconds)*time.Second,
		time.Duration(cfg.ForfeitTimeoutSeconds)*time.Second)
	mirror := ws.NewEventMirror(rdb)
	gateway := ws.NewGateway(hub, registry, supervisor, recorder, mirror, cfg.JWTSecret)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, registry, gateway, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayUNO server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
