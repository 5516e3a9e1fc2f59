// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Base URLs for the two market-data providers
	CoinAPIURL   string
	CoinGeckoURL string

	// API keys; an empty key degrades the provider to its free tier
	// (or skips it entirely) rather than failing startup
	CoinAPIKey   string
	CoinGeckoKey string

	// Per-attempt HTTP timeout for provider calls
	RequestTimeout time.Duration

	// Sliding-window rate limits, matching each provider's published quota
	CoinAPIRateLimit    int           // requests per CoinAPIRateWindow
	CoinAPIRateWindow   time.Duration // trailing window, per-second quota
	CoinGeckoRateLimit  int           // requests per CoinGeckoRateWindow
	CoinGeckoRateWindow time.Duration // trailing window, per-minute quota

	// Optional Ethereum RPC endpoint for live chain-stat enrichment
	EthRPCEndpoint string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Inbound API rate limiting
	APIRateLimit float64
	APIRateBurst int
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:                GetEnvOrDefault("PORT", "8080"),
		CoinAPIURL:          GetEnvOrDefault("COINAPI_URL", "https://rest.coinapi.io"),
		CoinGeckoURL:        GetEnvOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinAPIKey:          os.Getenv("COINAPI_KEY"),
		CoinGeckoKey:        os.Getenv("COINGECKO_API_KEY"),
		RequestTimeout:      GetEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		CoinAPIRateLimit:    GetEnvAsInt("COINAPI_RATE_LIMIT", 3),
		CoinAPIRateWindow:   GetEnvAsDuration("COINAPI_RATE_WINDOW", time.Second),
		CoinGeckoRateLimit:  GetEnvAsInt("COINGECKO_RATE_LIMIT", 30),
		CoinGeckoRateWindow: GetEnvAsDuration("COINGECKO_RATE_WINDOW", time.Minute),
		EthRPCEndpoint:      os.Getenv("ETH_RPC_ENDPOINT"),
		OtelEndpoint:        GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		APIRateLimit:        GetEnvAsFloat("API_RATE_LIMIT_RPS", 20.0),
		APIRateBurst:        GetEnvAsInt("API_RATE_LIMIT_BURST", 40),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
