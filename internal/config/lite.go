package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anatomy-twin-server/internal/domain"
)

// LiteConfig is the environment-only configuration for standalone use.
// It needs no external services: preferences go to SQLite under DataDir
// and the content service is the embedded graph unless a URL is given.
type LiteConfig struct {
	DataDir string

	CacheMaxItems int
	CacheTTL      time.Duration

	ContentServiceURL string
	RegionsFile       string
	ModulesFile       string

	Transport string // stdio, http
	HTTPPort  int

	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".anatomy-twin"),
		CacheMaxItems: 256,
		CacheTTL:      time.Hour,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig reads TWIN_* environment variables over the defaults.
// Unparseable numbers and durations keep the default.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("TWIN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("TWIN_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("TWIN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	cfg.ContentServiceURL = os.Getenv("TWIN_CONTENT_SERVICE_URL")
	cfg.RegionsFile = os.Getenv("TWIN_REGIONS_FILE")
	cfg.ModulesFile = os.Getenv("TWIN_MODULES_FILE")

	if v := os.Getenv("TWIN_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("TWIN_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("TWIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TWIN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// PreferencesDBPath returns the path of the complexity preference database.
func (c *LiteConfig) PreferencesDBPath() string {
	return filepath.Join(c.DataDir, "preferences.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// Config expands the lite settings into a full configuration with every
// networked integration switched off.
func (c *LiteConfig) Config() *domain.Config {
	return &domain.Config{
		Environment: "standalone",
		Server:      domain.ServerConfig{Host: "127.0.0.1", Port: c.HTTPPort},
		ContentService: domain.ContentServiceConfig{
			BaseURL:   c.ContentServiceURL,
			RateLimit: 20,
		},
		Cache: domain.CacheConfig{
			DefaultTTL:  c.CacheTTL,
			MemoryItems: c.CacheMaxItems,
		},
		Complexity: domain.ComplexityConfig{
			Store:      "sqlite",
			SQLitePath: c.PreferencesDBPath(),
			OwnerID:    "default",
		},
		Content: domain.ContentConfig{
			RegionsFile: c.RegionsFile,
			ModulesFile: c.ModulesFile,
		},
		Metrics: domain.MetricsConfig{Namespace: "anatomy_twin"},
		Logging: domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"},
	}
}
