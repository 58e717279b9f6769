// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for all databases (always absolute)
	LogLevel        string
	Port            int
	DevMode         bool
	MonitorSchedule string // cron spec for the risk monitoring tick
	Risk            RiskConfig
}

// RiskConfig holds the default parameters for risk computations.
// Individual API calls may override them per request.
type RiskConfig struct {
	LookbackDays    int     // trading days of history for return series
	ConfidenceLevel float64 // e.g. 0.95 for 95%
	HorizonDays     int     // VaR time horizon
	Simulations     int     // Monte Carlo draw count
	RiskFreeRate    float64 // annual risk-free rate for Sharpe
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults for anything unset.
func Load() (*Config, error) {
	loadDotEnv()

	dataDir := getEnv("RISKWATCH_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	port, err := getEnvInt("RISKWATCH_PORT", 8090)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("RISKWATCH_LOG_LEVEL", "info"),
		Port:            port,
		DevMode:         getEnv("RISKWATCH_DEV_MODE", "false") == "true",
		MonitorSchedule: getEnv("RISKWATCH_MONITOR_SCHEDULE", "0 0 * * * *"), // hourly
	}

	cfg.Risk.LookbackDays, err = getEnvInt("RISKWATCH_LOOKBACK_DAYS", 252)
	if err != nil {
		return nil, err
	}
	cfg.Risk.HorizonDays, err = getEnvInt("RISKWATCH_HORIZON_DAYS", 1)
	if err != nil {
		return nil, err
	}
	cfg.Risk.Simulations, err = getEnvInt("RISKWATCH_SIMULATIONS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.Risk.ConfidenceLevel, err = getEnvFloat("RISKWATCH_CONFIDENCE_LEVEL", 0.95)
	if err != nil {
		return nil, err
	}
	cfg.Risk.RiskFreeRate, err = getEnvFloat("RISKWATCH_RISK_FREE_RATE", 0.03)
	if err != nil {
		return nil, err
	}

	if cfg.Risk.ConfidenceLevel <= 0 || cfg.Risk.ConfidenceLevel >= 1 {
		return nil, fmt.Errorf("confidence level must be in (0, 1) exclusive, got %v", cfg.Risk.ConfidenceLevel)
	}
	if cfg.Risk.LookbackDays < 2 {
		return nil, fmt.Errorf("lookback days must be at least 2, got %d", cfg.Risk.LookbackDays)
	}

	return cfg, nil
}

// DatabasePath returns the absolute path for a named database file.
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name)
}

// loadDotEnv loads a .env file when one exists. A missing file is not an
// error - environment variables and defaults apply.
func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return parsed, nil
}
