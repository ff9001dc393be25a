// Package app assembles the content server from configuration. The REST
// server, the MCP tool server and the CLI all run on the same App.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/api"
	"github.com/anatomy-twin-server/internal/assets"
	"github.com/anatomy-twin-server/internal/complexity"
	"github.com/anatomy-twin-server/internal/content"
	"github.com/anatomy-twin-server/internal/database"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/enrichment"
	"github.com/anatomy-twin-server/internal/mcp"
	"github.com/anatomy-twin-server/internal/mcp/caching"
	"github.com/anatomy-twin-server/internal/metrics"
	"github.com/anatomy-twin-server/internal/modules"
	"github.com/anatomy-twin-server/internal/patient"
	"github.com/anatomy-twin-server/internal/taxonomy"
	"github.com/anatomy-twin-server/pkg/contentservice"
)

// App holds every long-lived component. Optional integrations are nil
// when switched off in configuration.
type App struct {
	Config  *domain.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	Regions    *content.Store
	Taxonomy   *taxonomy.Table
	Patients   *patient.Memo
	Graph      *contentservice.Graph
	Content    contentservice.Client
	Breakers   *contentservice.ResilientClient
	Engine     *enrichment.Engine
	Complexity *complexity.State
	Modules    *modules.Registry
	ToolCache  *caching.ToolResultCache

	Assets  *assets.Signer
	DB      *database.DB
	Records *patient.Repository

	kafkaCfg domain.KafkaConfig
	closers  []func() error
}

// NewLogger builds the logrus logger described by cfg. Output "stderr"
// keeps stdout free for the MCP stdio transport.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	logger.SetOutput(out)
	return logger
}

// New wires the application. On error every component opened so far is
// closed again.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, kafkaCfg: cfg.Kafka}
	if err := a.init(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"regions":          a.Regions.Len(),
		"modules":          a.Modules.Len(),
		"complexity_store": cfg.Complexity.Store,
		"level":            a.Complexity.Level().String(),
	}).Info("Application initialized")
	return a, nil
}

func (a *App) init(ctx context.Context, cfg *domain.Config) error {
	var err error

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New(cfg.Metrics.Namespace)
	}

	if err = a.loadContent(cfg.Content); err != nil {
		return err
	}
	if a.Patients, err = patient.NewMemo(patient.NewFilter(a.Taxonomy), cfg.Cache.MemoryItems); err != nil {
		return err
	}
	a.Metrics.ObservePatientMemo(func() (int64, int64, int) {
		stats := a.Patients.Stats()
		return stats.Hits, stats.Misses, stats.Entries
	})
	if err = a.connectContentService(ctx, cfg); err != nil {
		return err
	}
	a.Engine = enrichment.NewEngine(a.Regions, a.Content, a.Logger, a.Metrics)

	if cfg.Database.Enabled {
		if err = a.connectDatabase(ctx, cfg.Database); err != nil {
			return err
		}
	}
	if err = a.startComplexity(ctx, cfg); err != nil {
		return err
	}
	if err = a.startToolCache(ctx, cfg.Cache); err != nil {
		return err
	}

	if cfg.Assets.Enabled {
		if a.Assets, err = assets.New(ctx, cfg.Assets, a.Logger); err != nil {
			return fmt.Errorf("failed to configure model assets: %w", err)
		}
	}
	return nil
}

func (a *App) loadContent(cfg domain.ContentConfig) error {
	var err error

	a.Taxonomy = taxonomy.Default()
	if cfg.TaxonomyFile != "" {
		if a.Taxonomy, err = taxonomy.LoadFile(cfg.TaxonomyFile); err != nil {
			return fmt.Errorf("failed to load taxonomy: %w", err)
		}
	}

	a.Regions = content.Default()
	if cfg.RegionsFile != "" {
		if a.Regions, err = a.Regions.WithFile(cfg.RegionsFile); err != nil {
			return fmt.Errorf("failed to load regions: %w", err)
		}
	}

	if a.Modules, err = modules.DefaultRegistry(cfg.ModulesFile); err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	for _, missing := range a.Modules.ValidatePrerequisites() {
		a.Logger.WithFields(logrus.Fields{
			"module":       missing.ModuleID,
			"prerequisite": missing.Prerequisite,
		}).Warn("Module prerequisite not registered")
	}
	return nil
}

// connectContentService picks the backing content source: Neo4j, then a
// remote HTTP service, then the embedded graph. Remote sources sit behind
// circuit breakers and, when enabled, the Redis cache. Condition browsing
// always reads the embedded graph.
func (a *App) connectContentService(ctx context.Context, cfg *domain.Config) error {
	a.Graph = contentservice.DefaultGraph()
	var client contentservice.Client
	switch {
	case cfg.Neo4j.Enabled:
		runner, err := contentservice.NewNeo4jRunner(ctx, cfg.Neo4j)
		if err != nil {
			return fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		a.closers = append(a.closers, func() error { return runner.Close(context.Background()) })
		client = contentservice.NewNeo4jClient(runner, a.Logger)
	case cfg.ContentService.BaseURL != "":
		client = contentservice.NewHTTPClient(cfg.ContentService)
	default:
		a.Content = a.Graph
		return nil
	}

	a.Breakers = contentservice.NewResilientClient(client, a.Logger)
	a.Content = a.Breakers

	if cfg.Cache.Enabled {
		rdb, err := contentservice.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rdb.Close)
		a.Content = contentservice.NewCachedClient(a.Breakers, rdb, cfg.Cache.DefaultTTL, a.Logger)
	}
	return nil
}

func (a *App) connectDatabase(ctx context.Context, cfg domain.DatabaseConfig) error {
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg), a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, func() error { db.Close(); return nil })
	a.Records = patient.NewRepository(db.Pool, a.Logger)
	return nil
}

func (a *App) startComplexity(ctx context.Context, cfg *domain.Config) error {
	var store complexity.Store
	switch strings.ToLower(cfg.Complexity.Store) {
	case "sqlite":
		s, err := complexity.NewSQLiteStore(cfg.Complexity.SQLitePath)
		if err != nil {
			return err
		}
		store = s
	case "postgres":
		s, err := complexity.NewPostgresStoreFromURL(database.ConfigFrom(cfg.Database).URL(), cfg.Complexity.OwnerID)
		if err != nil {
			return err
		}
		store = s
	default:
		store = complexity.NewMemoryStore()
	}
	a.closers = append(a.closers, store.Close)

	opts := []complexity.Option{complexity.WithMetrics(a.Metrics)}
	if cfg.Kafka.Enabled {
		pub, err := complexity.NewKafkaPublisher(cfg.Kafka, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, complexity.WithPublisher(pub))
	}
	a.Complexity = complexity.NewState(ctx, store, a.Logger, opts...)
	return nil
}

func (a *App) startToolCache(ctx context.Context, cfg domain.CacheConfig) error {
	cacheCfg := caching.CacheConfig{
		Enabled:    true,
		DefaultTTL: cfg.DefaultTTL,
		MaxEntries: cfg.MemoryItems,
		Logger:     a.Logger,
	}
	if cfg.Enabled {
		opts, err := redisv8.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.MaxRetries = cfg.MaxRetries
		rdb := redisv8.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("failed to connect tool cache to Redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		cacheCfg.RedisClient = rdb
	}
	a.ToolCache = caching.NewToolResultCache(cacheCfg)
	return nil
}

// Toolset binds the MCP tools to the application's components.
func (a *App) Toolset() *mcp.Toolset {
	return mcp.NewToolset(mcp.Deps{
		Regions:    a.Regions,
		Fetcher:    a.Engine,
		Patients:   a.Patients,
		Complexity: a.Complexity,
		Modules:    a.Modules,
		Graph:      a.Graph,
		Cache:      a.ToolCache,
		Logger:     a.Logger,
	})
}

// APIOptions describes the REST server's view of the application. Optional
// components are left nil when they are switched off.
func (a *App) APIOptions(version string) api.Options {
	opts := api.Options{
		Regions:    a.Regions,
		Fetcher:    a.Engine,
		Patients:   a.Patients,
		Complexity: a.Complexity,
		Modules:    a.Modules,
		Graph:      a.Graph,
		Metrics:    a.Metrics,
		Version:    version,
		Logger:     a.Logger,
	}
	if a.Records != nil {
		opts.Records = a.Records
	}
	if a.Assets != nil {
		opts.Assets = a.Assets
	}
	if a.DB != nil {
		opts.Checks = append(opts.Checks, api.HealthCheck{Name: "database", Check: a.DB.Health})
	}
	if a.Config.Cache.Enabled {
		opts.Checks = append(opts.Checks, api.HealthCheck{Name: "tool_cache", Check: func(ctx context.Context) error {
			if !a.ToolCache.IsHealthy(ctx) {
				return fmt.Errorf("redis did not answer")
			}
			return nil
		}})
	}
	if a.Breakers != nil {
		opts.Breakers = a.BreakerStates
	}
	return opts
}

// BreakerStates reports each content service circuit breaker by name.
func (a *App) BreakerStates() map[string]string {
	if a.Breakers == nil {
		return nil
	}
	out := make(map[string]string)
	for name, state := range a.Breakers.States() {
		out[name] = state.String()
	}
	return out
}

// FollowComplexity applies level changes published by other instances
// until ctx is done. It returns immediately when Kafka is disabled.
func (a *App) FollowComplexity(ctx context.Context) error {
	if !a.kafkaCfg.Enabled {
		return nil
	}
	reader := complexity.NewKafkaReader(a.kafkaCfg)
	defer reader.Close()
	return complexity.Follow(ctx, reader, a.Complexity, a.Logger)
}

// Close releases components in reverse order of creation.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
