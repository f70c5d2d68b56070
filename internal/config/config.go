package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match engine settings
	TickRateHz              int
	WinScore                int
	CountdownSeconds        int
	MatchmakingSweepSeconds int
	StatusBroadcastMillis   int
	AnnouncementDelaySecs   int
	TeardownGraceSeconds    int
	ChallengeTTLSeconds     int
	StaleRoomMaxAgeMinutes  int

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
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/playpong?sslmode=disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match engine settings
		TickRateHz:              getEnvInt("TICK_RATE_HZ", 120),
		WinScore:                getEnvInt("WIN_SCORE", 5),
		CountdownSeconds:        getEnvInt("COUNTDOWN_SECONDS", 3),
		MatchmakingSweepSeconds: getEnvInt("MATCHMAKING_SWEEP_SECONDS", 5),
		StatusBroadcastMillis:   getEnvInt("STATUS_BROADCAST_MILLIS", 500),
		AnnouncementDelaySecs:   getEnvInt("ANNOUNCEMENT_DELAY_SECONDS", 5),
		TeardownGraceSeconds:    getEnvInt("TEARDOWN_GRACE_SECONDS", 15),
		ChallengeTTLSeconds:     getEnvInt("CHALLENGE_TTL_SECONDS", 120),
		StaleRoomMaxAgeMinutes:  getEnvInt("STALE_ROOM_MAX_AGE_MINUTES", 30),

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
