package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment    string               `mapstructure:"environment"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	ContentService ContentServiceConfig `mapstructure:"content_service"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Assets         AssetsConfig         `mapstructure:"assets"`
	Complexity     ComplexityConfig     `mapstructure:"complexity"`
	Content        ContentConfig        `mapstructure:"content"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents the patient-record PostgreSQL connection
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// Neo4jConfig configures the optional graph-backed related-node source
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ContentServiceConfig configures the knowledge-graph content service.
// An empty BaseURL selects the embedded in-memory graph.
type ContentServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MemoryItems int           `mapstructure:"memory_items"`
}

// KafkaConfig configures complexity change event publication
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AssetsConfig configures presigned URLs for 3D model files
type AssetsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	Endpoint  string        `mapstructure:"endpoint"`
	PathStyle bool          `mapstructure:"path_style"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`

	// Static keys; empty uses the default AWS credential chain.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ComplexityConfig selects where the reader's level is persisted
type ComplexityConfig struct {
	Store      string `mapstructure:"store"` // sqlite, postgres, memory
	SQLitePath string `mapstructure:"sqlite_path"`
	OwnerID    string `mapstructure:"owner_id"`
}

// ContentConfig points at optional external data files
type ContentConfig struct {
	TaxonomyFile string `mapstructure:"taxonomy_file"`
	RegionsFile  string `mapstructure:"regions_file"`
	ModulesFile  string `mapstructure:"modules_file"`
}

// MetricsConfig represents Prometheus configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
