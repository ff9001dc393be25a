package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/anatomy-twin-server/internal/domain"
)

// Manager loads domain.Config through Viper
type Manager struct {
	v      *viper.Viper
	path   string
	config *domain.Config
}

// NewManager creates a configuration manager. An empty path searches for
// config.yaml in the usual locations; a missing file is not an error.
func NewManager(path string) (*Manager, error) {
	m := &Manager{v: viper.New(), path: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v
	if m.path != "" {
		v.SetConfigFile(m.path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/anatomy-twin/")
	}

	v.SetEnvPrefix("ANATOMY_TWIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "anatomy_twin")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")

	// Content service defaults; empty base_url means the embedded graph
	v.SetDefault("content_service.base_url", "")
	v.SetDefault("content_service.timeout", "0s")
	v.SetDefault("content_service.rate_limit", 20)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_items", 256)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "anatomy-twin.complexity")

	v.SetDefault("assets.enabled", false)
	v.SetDefault("assets.region", "us-east-1")
	v.SetDefault("assets.url_expiry", "15m")

	v.SetDefault("complexity.store", "memory")
	v.SetDefault("complexity.sqlite_path", "data/preferences.db")
	v.SetDefault("complexity.owner_id", "default")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "anatomy_twin")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

var (
	validLogLevels = map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	validStores = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
)

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if !validStores[strings.ToLower(config.Complexity.Store)] {
		return fmt.Errorf("invalid complexity store: %s", config.Complexity.Store)
	}
	if strings.EqualFold(config.Complexity.Store, "postgres") && !config.Database.Enabled {
		return fmt.Errorf("the postgres complexity store requires database.enabled")
	}
	if config.Database.Enabled {
		if config.Database.Host == "" || config.Database.Database == "" || config.Database.Username == "" {
			return fmt.Errorf("database host, name and username are required")
		}
	}
	if strings.EqualFold(config.Complexity.Store, "sqlite") && config.Complexity.SQLitePath == "" {
		return fmt.Errorf("complexity sqlite_path is required for the sqlite store")
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the cache is enabled")
	}
	if config.Neo4j.Enabled && config.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri is required when neo4j is enabled")
	}
	if config.Kafka.Enabled && (len(config.Kafka.Brokers) == 0 || config.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}
	if config.Assets.Enabled && config.Assets.Bucket == "" {
		return fmt.Errorf("assets bucket is required when assets are enabled")
	}

	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.EqualFold(m.config.Environment, "production")
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
