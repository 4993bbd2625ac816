package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RedisURL:          "redis://localhost:6379",
		EventChannel:      "calibration:events",
		DatabaseURL:       "postgres://localhost/calibration",
		VisionAPIURL:      "http://localhost:8080",
		VisionTimeout:     60 * time.Second,
		WorkerConcurrency: 4,
		MaxImageSize:      32 << 20,
		RunTimeout:        5 * time.Minute,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/calibration")
	t.Setenv("VISION_API_URL", "http://localhost:8080")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "calibration:events", cfg.EventChannel)
	assert.Equal(t, "eng+jpn", cfg.TesseractLanguages)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, int64(33554432), cfg.MaxImageSize)
	assert.Equal(t, 60*time.Second, cfg.VisionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/cal")
	t.Setenv("VISION_API_URL", "http://vision:9000")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("VISION_TIMEOUT", "90s")
	t.Setenv("TESSERACT_LANGUAGES", "eng")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, 90*time.Second, cfg.VisionTimeout)
	assert.Equal(t, "eng", cfg.TesseractLanguages)
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/cal")
	t.Setenv("VISION_API_URL", "http://vision:9000")
	t.Setenv("WORKER_CONCURRENCY", "many")
	t.Setenv("VISION_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 60*time.Second, cfg.VisionTimeout)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.WorkerConcurrency = 0
	assert.ErrorContains(t, cfg.Validate(), "WORKER_CONCURRENCY")

	cfg = validConfig()
	cfg.WorkerConcurrency = 100
	assert.ErrorContains(t, cfg.Validate(), "WORKER_CONCURRENCY")

	cfg = validConfig()
	cfg.MaxImageSize = 100
	assert.ErrorContains(t, cfg.Validate(), "MAX_IMAGE_SIZE")

	cfg = validConfig()
	cfg.VisionTimeout = 100 * time.Millisecond
	assert.ErrorContains(t, cfg.Validate(), "VISION_TIMEOUT")

	cfg = validConfig()
	cfg.DatabaseURL = ""
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")
}
