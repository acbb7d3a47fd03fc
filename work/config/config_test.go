package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, int64(100), cfg.MaxUploadMB)
	assert.Equal(t, 30*time.Minute, cfg.CacheDuration)
	assert.Positive(t, cfg.WorkerThreads)
	assert.Equal(t, "data/uploads.db", cfg.DatabasePath)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	t.Setenv("PORT", "8080")
	t.Setenv("DATA_DIR", "/tmp/catalog")
	t.Setenv("MAX_UPLOAD_MB", "250")
	t.Setenv("CACHE_DURATION", "5m")
	t.Setenv("DEBUG", "true")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/catalog", cfg.DataDir)
	assert.Equal(t, int64(250), cfg.MaxUploadMB)
	assert.Equal(t, 5*time.Minute, cfg.CacheDuration)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/catalog/uploads.db", cfg.DatabasePath)
}

func TestLoadConfigClampsInvalidValues(t *testing.T) {
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	t.Setenv("PORT", "99999")
	t.Setenv("MAX_UPLOAD_MB", "-5")
	t.Setenv("WORKER_THREADS", "0")
	t.Setenv("CACHE_DURATION", "garbage")

	cfg := LoadConfig()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, int64(100), cfg.MaxUploadMB)
	assert.Equal(t, 1, cfg.WorkerThreads)
	assert.Equal(t, 30*time.Minute, cfg.CacheDuration)
}

func TestLoadConfigCachesInstance(t *testing.T) {
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	first := LoadConfig()
	t.Setenv("PORT", "9000")
	second := LoadConfig()

	// the environment is only read once
	assert.Same(t, first, second)
}
