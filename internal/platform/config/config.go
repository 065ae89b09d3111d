package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// ProcessingDelay is the settlement wait between transaction creation and
	// finalization. Zero disables the wait.
	ProcessingDelay time.Duration

	// RateLimit is a ulule/limiter formatted rate, e.g. "100-M".
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("PROCESSING_DELAY", "2s")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	delayStr := viper.GetString("PROCESSING_DELAY")
	delay, err := time.ParseDuration(delayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESSING_DELAY %q: %w", delayStr, err)
	}
	if delay < 0 {
		return nil, fmt.Errorf("PROCESSING_DELAY must not be negative, got %s", delay)
	}
	cfg.ProcessingDelay = delay

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}
