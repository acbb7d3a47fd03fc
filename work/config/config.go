package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration values for the catalog server.
// Everything is environment-driven with sensible defaults so the binary runs
// out of the box with no config file.
type Config struct {
	Port          int           // HTTP listen port
	DataDir       string        // Root directory for catalog documents and shards
	UploadsDir    string        // Directory for temporary playlist uploads
	DatabasePath  string        // SQLite database path for the upload history
	MaxUploadMB   int64         // Maximum accepted playlist upload size in MB
	WorkerThreads int           // Worker pool size for shard writes
	CacheDuration time.Duration // TTL for cached category shards
	LogLevel      string        // Log level passed to the logger on startup
	Debug         bool          // Enable verbose debug logging
}

var (
	configCache *Config      // Cached configuration instance (singleton)
	configMutex sync.RWMutex // Mutex for safe concurrent access to configCache
)

// LoadConfig builds the configuration from the environment or returns the
// cached instance. Invalid values silently fall back to defaults; a catalog
// server with a half-set environment should still come up.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check under write lock
	if configCache != nil {
		return configCache
	}

	cfg := &Config{
		Port:          envInt("PORT", 3000),
		DataDir:       envString("DATA_DIR", "data"),
		UploadsDir:    envString("UPLOADS_DIR", "uploads"),
		MaxUploadMB:   int64(envInt("MAX_UPLOAD_MB", 100)),
		WorkerThreads: envInt("WORKER_THREADS", runtime.NumCPU()),
		CacheDuration: envDuration("CACHE_DURATION", 30*time.Minute),
		LogLevel:      envString("LOG_LEVEL", "info"),
		Debug:         envBool("DEBUG", false),
	}
	cfg.DatabasePath = envString("DB_PATH", filepath.Join(cfg.DataDir, "uploads.db"))

	validateAndSetDefaults(cfg)

	configCache = cfg
	return cfg
}

// ClearConfigCache drops the cached configuration so the next LoadConfig call
// re-reads the environment. Used by tests.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

// validateAndSetDefaults clamps out-of-range values back to something safe.
func validateAndSetDefaults(cfg *Config) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 3000
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 100
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = 1
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 30 * time.Minute
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
