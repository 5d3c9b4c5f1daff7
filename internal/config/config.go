package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	Port        string
	DBPath      string
	CORSOrigins []string

	// Catalog source (Rainforest-style Amazon product API)
	CatalogAPIKey   string
	CatalogBaseURL  string
	CatalogTimeout  time.Duration
	CatalogRPS      float64
	CatalogBurst    int
	CatalogCacheTTL time.Duration

	// Monitoring cycle
	UpdateSchedule        string // cron expression
	WorkerCount           int
	DefaultAlertThreshold float64

	// Notification delivery (optional)
	TelegramBotToken string
}

// Load reads configuration from the environment, applying defaults for
// everything except the catalog API key, which is required.
func Load() (*Config, error) {
	apiKey := os.Getenv("RAINFOREST_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RAINFOREST_API_KEY is not set")
	}

	cfg := &Config{
		Port:                  "8080",
		DBPath:                "./price_tracker.db",
		CatalogAPIKey:         apiKey,
		CatalogBaseURL:        "https://api.rainforestapi.com",
		CatalogTimeout:        10 * time.Second,
		CatalogRPS:            1,
		CatalogBurst:          3,
		CatalogCacheTTL:       15 * time.Minute,
		UpdateSchedule:        "0 0 * * *", // once a day at midnight
		WorkerCount:           4,
		DefaultAlertThreshold: 10,
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if base := os.Getenv("RAINFOREST_API_URL"); base != "" {
		cfg.CatalogBaseURL = base
	}
	if v := os.Getenv("CATALOG_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.CatalogTimeout = time.Duration(parsed) * time.Second
		}
	}
	if v := os.Getenv("CATALOG_REQUESTS_PER_SECOND"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			cfg.CatalogRPS = parsed
		}
	}
	if v := os.Getenv("CATALOG_CACHE_TTL_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.CatalogCacheTTL = time.Duration(parsed) * time.Minute
		}
	}
	if schedule := os.Getenv("UPDATE_SCHEDULE"); schedule != "" {
		cfg.UpdateSchedule = schedule
	}
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.WorkerCount = parsed
		}
	}
	if v := os.Getenv("DEFAULT_ALERT_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			cfg.DefaultAlertThreshold = parsed
		}
	}

	return cfg, nil
}
