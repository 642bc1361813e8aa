package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database (optional - empty disables the results ledger)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (optional - empty disables the event mirror)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game Settings
	TurnSkipGraceSeconds  int
	ForfeitTimeoutSeconds int
	InitialHandSize       int
	MaxPlayersPerRoom     int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game Settings
		TurnSkipGraceSeconds:  getEnvInt("TURN_SKIP_GRACE_SECONDS", 30),
		ForfeitTimeoutSeconds: getEnvInt("FORFEIT_TIMEOUT_SECONDS", 600),
		InitialHandSize:       getEnvInt("INITIAL_HAND_SIZE", 7),
		MaxPlayersPerRoom:     getEnvInt("MAX_PLAYERS_PER_ROOM", 10),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
