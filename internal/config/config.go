package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for Tradequest
type Config struct {
	// Database configuration
	DBPath string

	// HTTP configuration
	HTTPPort string

	// External API configuration
	DexScreenerURL string
	JupiterURL     string
	HeliusURL      string
	HeliusAPIKey   string

	// Price watcher configuration
	RefreshIntervalMs int
	RefreshMaxRPS     float64

	// Seeding configuration
	SeedBalance float64

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		DBPath:         getEnv("DB_PATH", "tradequest.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DexScreenerURL: getEnv("DEXSCREENER_URL", "https://api.dexscreener.com"),
		JupiterURL:     getEnv("JUPITER_URL", "https://quote-api.jup.ag"),
		HeliusURL:      getEnv("HELIUS_URL", "https://mainnet.helius-rpc.com"),
		HeliusAPIKey:   getEnv("HELIUS_API_KEY", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsPort:    getEnv("METRICS_PORT", "9100"),
	}

	var err error
	cfg.RefreshIntervalMs, err = parseIntEnv("REFRESH_INTERVAL_MS", 1000)
	if err != nil {
		return cfg, fmt.Errorf("invalid REFRESH_INTERVAL_MS: %w", err)
	}

	cfg.RefreshMaxRPS, err = parseFloatEnv("REFRESH_MAX_RPS", 2.0)
	if err != nil {
		return cfg, fmt.Errorf("invalid REFRESH_MAX_RPS: %w", err)
	}

	cfg.SeedBalance, err = parseFloatEnv("SEED_BALANCE", 10)
	if err != nil {
		return cfg, fmt.Errorf("invalid SEED_BALANCE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}

	if c.DexScreenerURL == "" {
		return fmt.Errorf("DEXSCREENER_URL is required")
	}

	if c.JupiterURL == "" {
		return fmt.Errorf("JUPITER_URL is required")
	}

	if c.HeliusURL == "" {
		return fmt.Errorf("HELIUS_URL is required")
	}

	if c.RefreshIntervalMs < 100 {
		return fmt.Errorf("REFRESH_INTERVAL_MS must be at least 100")
	}

	if c.RefreshMaxRPS <= 0 {
		return fmt.Errorf("REFRESH_MAX_RPS must be positive")
	}

	if c.SeedBalance <= 0 {
		return fmt.Errorf("SEED_BALANCE must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseFloatEnv parses a float environment variable with a default value
func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}
