package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Contract gateway JSON-RPC endpoint
	GatewayURL string

	// Network the gateway fronts ( testnet or mainnet )
	Network string

	// Trust registry contract ID queried by the domain operations
	ContractID string

	// Per-attempt gateway deadline
	GatewayTimeout time.Duration

	// Gateway retry policy
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMultiplier  float64

	// Postgres connection string
	DatabaseURL string

	// HTTP API listen port
	APIPort int

	// Reputation decay half-life
	ReputationHalfLife time.Duration

	// Minimum votes before a dispute can resolve
	DisputeQuorum int

	// Log level ( debug, info, warn, error )
	LogLevel string
}

// Load reads the configuration from environment variables, applying defaults
// for everything but the database URL.
func Load() *Config {
	return &Config{
		GatewayURL:         os.Getenv("GATEWAY_URL"),
		Network:            getEnv("GATEWAY_NETWORK", "testnet"),
		ContractID:         os.Getenv("GATEWAY_CONTRACT_ID"),
		GatewayTimeout:     time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_MS", 5000)) * time.Millisecond,
		RetryMaxAttempts:   getEnvAsInt("GATEWAY_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:     time.Duration(getEnvAsInt("GATEWAY_RETRY_BASE_DELAY_MS", 200)) * time.Millisecond,
		RetryMaxDelay:      time.Duration(getEnvAsInt("GATEWAY_RETRY_MAX_DELAY_MS", 2000)) * time.Millisecond,
		RetryMultiplier:    getEnvAsFloat("GATEWAY_RETRY_MULTIPLIER", 2),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		APIPort:            getEnvAsInt("API_PORT", 8080),
		ReputationHalfLife: time.Duration(getEnvAsInt("REPUTATION_HALF_LIFE_DAYS", 90)) * 24 * time.Hour,
		DisputeQuorum:      getEnvAsInt("DISPUTE_QUORUM", 3),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required")
	}
	if c.ContractID == "" {
		return fmt.Errorf("GATEWAY_CONTRACT_ID is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get float from env
func getEnvAsFloat(key string, defaultVal float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return defaultVal
	}
	return val
}
