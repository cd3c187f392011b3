package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CatalogPath      string
	DepositAddress   string
	PayoutWebhookURL string
	InsightAPIURL    string
	Location         *time.Location
}

// Load reads configuration from the environment, consulting a local .env
// file first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Eligibility windows are day-of-week gated, so the clock must be
	// pinned to one authoritative timezone rather than whatever the host
	// happens to run in.
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      dbURL,
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		CatalogPath:      os.Getenv("CATALOG_PATH"),
		DepositAddress:   getEnv("DEPOSIT_ADDRESS", "TXmvEndpoint000000000000000000000"),
		PayoutWebhookURL: os.Getenv("PAYOUT_WEBHOOK_URL"),
		InsightAPIURL:    os.Getenv("INSIGHT_API_URL"),
		Location:         loc,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
