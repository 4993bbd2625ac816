/**
 * Configuration for the calibration worker
 *
 * Loads configuration from environment variables matching .env.calibrator
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (job queue + completion notifications)
	RedisURL     string
	EventChannel string

	// PostgreSQL configuration (profile store)
	DatabaseURL string

	// AI vision backend
	VisionAPIURL  string
	VisionAPIKey  string
	VisionTimeout time.Duration

	// Tesseract configuration
	TesseractLanguages string

	// Worker configuration
	WorkerConcurrency int
	MaxImageSize      int64
	RunTimeout        time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		EventChannel:       getEnvOrDefault("EVENT_CHANNEL", "calibration:events"),
		DatabaseURL:        getEnvOrThrow("DATABASE_URL"),
		VisionAPIURL:       getEnvOrThrow("VISION_API_URL"),
		VisionAPIKey:       getEnvOrDefault("VISION_API_KEY", ""),
		VisionTimeout:      getEnvAsDurationOrDefault("VISION_TIMEOUT", 60*time.Second),
		TesseractLanguages: getEnvOrDefault("TESSERACT_LANGUAGES", "eng+jpn"),
		WorkerConcurrency:  getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		MaxImageSize:       getEnvAsInt64OrDefault("MAX_IMAGE_SIZE", 33554432), // 32MB
		RunTimeout:         getEnvAsDurationOrDefault("RUN_TIMEOUT", 5*time.Minute),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.VisionAPIURL == "" {
		return fmt.Errorf("VISION_API_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 64, got %d", c.WorkerConcurrency)
	}

	if c.MaxImageSize < 1024 || c.MaxImageSize > 268435456 { // 1KB to 256MB
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 1KB and 256MB, got %d", c.MaxImageSize)
	}

	if c.VisionTimeout < time.Second {
		return fmt.Errorf("VISION_TIMEOUT must be at least 1s, got %v", c.VisionTimeout)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or panics when unset
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault gets environment variable as duration or returns default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
