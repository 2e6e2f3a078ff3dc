// Package config provides configuration management: process-level settings
// from environment variables and the portfolio document loaded from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process-level application configuration.
type Config struct {
	DataDir       string // Base directory for the SQLite database
	PortfolioPath string // Path to the portfolio YAML document
	LogLevel      string
	Port          int
	DevMode       bool
}

// Load reads configuration from environment variables (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DASHBOARD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		PortfolioPath: getEnv("PORTFOLIO_CONFIG", "config.yaml"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnvAsInt("PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
	}

	return cfg, nil
}

// DatabasePath returns the path of the dashboard database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "dashboard.db")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
