package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 256, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.ContentServiceURL)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TWIN_DATA_DIR", "/tmp/test-twin")
	t.Setenv("TWIN_CACHE_MAX_ITEMS", "500")
	t.Setenv("TWIN_CACHE_TTL", "12h")
	t.Setenv("TWIN_CONTENT_SERVICE_URL", "http://content.local")
	t.Setenv("TWIN_MODULES_FILE", "/etc/twin/modules.yaml")
	t.Setenv("TWIN_TRANSPORT", "http")
	t.Setenv("TWIN_HTTP_PORT", "9090")
	t.Setenv("TWIN_LOG_LEVEL", "debug")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-twin", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "http://content.local", cfg.ContentServiceURL)
	assert.Equal(t, "/etc/twin/modules.yaml", cfg.ModulesFile)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("TWIN_CACHE_MAX_ITEMS", "-3")
	t.Setenv("TWIN_CACHE_TTL", "soon")
	t.Setenv("TWIN_HTTP_PORT", "http")

	cfg := LoadLiteConfig()

	assert.Equal(t, 256, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_Config(t *testing.T) {
	lite := &LiteConfig{DataDir: "/data/twin", CacheMaxItems: 64, CacheTTL: time.Minute, HTTPPort: 7000, LogLevel: "warn"}

	cfg := lite.Config()

	assert.Equal(t, "/data/twin/preferences.db", lite.PreferencesDBPath())
	assert.Equal(t, "sqlite", cfg.Complexity.Store)
	assert.Equal(t, lite.PreferencesDBPath(), cfg.Complexity.SQLitePath)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Cache.MemoryItems)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "nested", "twin")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}
