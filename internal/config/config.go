package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries every tunable the service reads from the environment.
type AppConfig struct {
	Port string

	// RefreshInterval controls how often each cached coordinate refreshes.
	RefreshInterval time.Duration

	// HTTPTimeout bounds each outbound upstream call.
	HTTPTimeout time.Duration

	// StaleThreshold is the regional observation age past which a stale-data
	// alert is synthesized.
	StaleThreshold time.Duration

	// RegionalWeight biases the current-conditions averaging toward the
	// regional source.
	RegionalWeight float64

	// Upstream base URLs, overridable for tests and mirrors.
	ECBaseURL        string
	OpenMeteoBaseURL string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:             getenvDefault("PORT", "8080"),
		ECBaseURL:        os.Getenv("EC_BASE_URL"),
		OpenMeteoBaseURL: os.Getenv("OPENMETEO_BASE_URL"),
	}

	interval, err := getenvDuration("REFRESH_INTERVAL", "10m")
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	stale, err := getenvDuration("STALE_THRESHOLD", "3h")
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_THRESHOLD: %w", err)
	}
	cfg.StaleThreshold = stale

	cfg.RegionalWeight = getenvFloat("REGIONAL_WEIGHT", 0.7)
	if cfg.RegionalWeight <= 0 || cfg.RegionalWeight > 1 {
		return nil, fmt.Errorf("REGIONAL_WEIGHT must be in (0,1], got %v", cfg.RegionalWeight)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
