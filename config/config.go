package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV       string
	DB_DRIVER    string // postgres (pgx), pq (lib/pq) or sqlite
	SQLITE_PATH  string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Redis Configuration
	REDIS_URL         string
	CACHE_TTL_SECONDS int
	// Recycle bin / cron
	CRON_ENABLED               bool
	RECYCLE_BIN_RETENTION_DAYS int
	// HTTP
	ALLOWED_ORIGINS           string
	RATE_LIMIT_REQUESTS       int
	RATE_LIMIT_WINDOW_SECONDS int
	RATE_LIMIT_KEY            string // ip or a request header name such as X-Client-ID
}

func Get() (*EnvironmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_DRIVER:    getString("DB_DRIVER", "postgres"),
		SQLITE_PATH:  getString("SQLITE_PATH", "projenitor.db"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getString("DB_HOST", "localhost"),
		DB_PORT:      getString("DB_PORT", "5432"),
		DB_SSL_MODE:  getString("DB_SSL_MODE", "disable"),
		PORT:         port,
		// Redis
		REDIS_URL:         getString("REDIS_URL", "redis://localhost:6379/0"),
		CACHE_TTL_SECONDS: getInt("CACHE_TTL_SECONDS", 300),
		// Cron
		CRON_ENABLED:               os.Getenv("CRON_ENABLED") != "false",
		RECYCLE_BIN_RETENTION_DAYS: getInt("RECYCLE_BIN_RETENTION_DAYS", 0),
		// HTTP
		ALLOWED_ORIGINS:           getString("ALLOWED_ORIGINS", "http://localhost:3000"),
		RATE_LIMIT_REQUESTS:       getInt("RATE_LIMIT_REQUESTS", 100),
		RATE_LIMIT_WINDOW_SECONDS: getInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RATE_LIMIT_KEY:            getString("RATE_LIMIT_KEY", "ip"),
	}

	return envVariables, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
