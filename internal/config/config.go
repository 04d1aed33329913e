package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database (optional, enables the Postgres questionnaire source)
	DatabaseURL string

	// Redis (optional, in-memory snapshot store without it)
	RedisURL string

	// JWT
	JWTSecret string

	// Questionnaire
	QuestionnaireURL  string
	QuestionnaireID   string
	QuestionnaireFile string
	FetchTimeout      time.Duration

	// Persistence
	SnapshotTTL    time.Duration
	PersistWorkers int

	// Session upkeep
	SessionIdleTTL         time.Duration
	QuestionnaireRefreshIn time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "8080"),
		Env:                    getEnvOrDefault("ENV", "development"),
		DatabaseURL:            getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:               getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:              mustGetEnv("JWT_SECRET"),
		QuestionnaireURL:       getEnvOrDefault("QUESTIONNAIRE_URL", "https://manual-case-study.herokuapp.com/questionnaires/972423.json"),
		QuestionnaireID:        getEnvOrDefault("QUESTIONNAIRE_ID", "972423"),
		QuestionnaireFile:      getEnvOrDefault("QUESTIONNAIRE_FILE", ""),
		FetchTimeout:           getEnvAsDurationOrDefault("FETCH_TIMEOUT", 5*time.Second),
		SnapshotTTL:            getEnvAsDurationOrDefault("SNAPSHOT_TTL", 720*time.Hour),
		PersistWorkers:         getEnvAsIntOrDefault("PERSIST_WORKERS", 4),
		SessionIdleTTL:         getEnvAsDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute),
		QuestionnaireRefreshIn: getEnvAsDurationOrDefault("QUESTIONNAIRE_REFRESH_INTERVAL", time.Hour),
		FrontendURL:            getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
