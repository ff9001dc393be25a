package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/config"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/mcp"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func liteConfig(t *testing.T, dir string) *domain.Config {
	t.Helper()
	lite := config.DefaultLiteConfig()
	lite.DataDir = dir
	require.NoError(t, lite.EnsureDataDir())
	return lite.Config()
}

func TestNew_Lite(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := New(ctx, liteConfig(t, dir), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 8, a.Regions.Len())
	assert.Equal(t, 7, a.Modules.Len())
	assert.Nil(t, a.Breakers)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Metrics)
	assert.Equal(t, domain.LevelStandard, a.Complexity.Level())

	result, err := a.Toolset().Call(ctx, mcp.ToolSetComplexity, json.RawMessage(`{"level":4}`))
	require.NoError(t, err)
	assert.Equal(t, domain.LevelAdvanced, result.(mcp.ComplexityResult).Level)
	require.NoError(t, a.Close())

	// The level survives a restart through the SQLite store.
	b, err := New(ctx, liteConfig(t, dir), quietLogger())
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, domain.LevelAdvanced, b.Complexity.Level())
	assert.FileExists(t, filepath.Join(dir, "preferences.db"))
}

func TestNew_MemoryDefaults(t *testing.T) {
	m, err := config.NewManager("")
	require.NoError(t, err)

	a, err := New(context.Background(), m.GetConfig(), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Metrics)
	opts := a.APIOptions("1.2.3")
	assert.Nil(t, opts.Records)
	assert.Nil(t, opts.Assets)
	assert.Nil(t, opts.Breakers)
	assert.Empty(t, opts.Checks)
	assert.Equal(t, "1.2.3", opts.Version)
	assert.Nil(t, a.BreakerStates())
	assert.Same(t, a.Graph, opts.Graph)

	a.Patients.ForRegion("heart", &domain.PatientRecord{Conditions: []domain.PatientCondition{{ID: "c1", Name: "Hypertension"}}})
	ns := a.Config.Metrics.Namespace
	count, err := testutil.GatherAndCount(a.Metrics.Registry(), ns+"_patient_memo_misses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == ns+"_patient_memo_entries" {
			assert.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
		}
	}

	res, err := a.Toolset().Call(context.Background(), mcp.ToolLookupMedication, json.RawMessage(`{"name":"omeprazole"}`))
	require.NoError(t, err)
	assert.NotNil(t, res)

	assert.NoError(t, a.FollowComplexity(context.Background()))
}

func TestNew_RemoteContentServiceAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := liteConfig(t, t.TempDir())
	cfg.ContentService.BaseURL = "http://127.0.0.1:1"
	cfg.Cache.Enabled = true
	cfg.Cache.RedisURL = "redis://" + mr.Addr()
	cfg.Cache.DefaultTTL = time.Minute

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Breakers)
	states := a.BreakerStates()
	assert.Len(t, states, 4)
	for name, state := range states {
		assert.Equal(t, "closed", state, name)
	}

	opts := a.APIOptions("")
	require.Len(t, opts.Checks, 1)
	assert.Equal(t, "tool_cache", opts.Checks[0].Name)
	assert.NoError(t, opts.Checks[0].Check(context.Background()))

	// The unreachable service degrades to authored content.
	view, err := a.Engine.Fetch(context.Background(), "heart")
	require.NoError(t, err)
	assert.Equal(t, "heart", view.Region.ID)

	_, err = a.Toolset().Call(context.Background(), mcp.ToolGetRegion, json.RawMessage(`{"region_id":"heart"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, a.ToolCache.GetStats().Entries)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *domain.Config)
	}{
		{name: "missing regions file", mutate: func(cfg *domain.Config) { cfg.Content.RegionsFile = "/nonexistent/regions.yaml" }},
		{name: "missing taxonomy file", mutate: func(cfg *domain.Config) { cfg.Content.TaxonomyFile = "/nonexistent/keywords.yaml" }},
		{name: "missing modules file", mutate: func(cfg *domain.Config) { cfg.Content.ModulesFile = "/nonexistent/modules.yaml" }},
		{name: "bad redis url", mutate: func(cfg *domain.Config) {
			cfg.Cache.Enabled = true
			cfg.Cache.RedisURL = "not-a-url"
		}},
		{name: "assets without bucket", mutate: func(cfg *domain.Config) { cfg.Assets.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := liteConfig(t, t.TempDir())
			tt.mutate(cfg)
			a, err := New(context.Background(), cfg, quietLogger())
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       domain.LoggingConfig
		level     logrus.Level
		formatter logrus.Formatter
		out       io.Writer
	}{
		{name: "json default", cfg: domain.LoggingConfig{Level: "debug"}, level: logrus.DebugLevel, formatter: &logrus.JSONFormatter{}, out: os.Stdout},
		{name: "text on stderr", cfg: domain.LoggingConfig{Level: "warn", Format: "TEXT", Output: "stderr"}, level: logrus.WarnLevel, formatter: &logrus.TextFormatter{FullTimestamp: true}, out: os.Stderr},
		{name: "bad level", cfg: domain.LoggingConfig{Level: "loud"}, level: logrus.InfoLevel, formatter: &logrus.JSONFormatter{}, out: os.Stdout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(tt.cfg)
			assert.Equal(t, tt.level, l.GetLevel())
			assert.IsType(t, tt.formatter, l.Formatter)
			assert.Equal(t, tt.out, l.Out)
		})
	}

	var buf bytes.Buffer
	l := NewLogger(domain.LoggingConfig{Level: "info"})
	l.SetOutput(&buf)
	l.WithField("region_id", "heart").Info("hello")
	assert.Contains(t, buf.String(), `"region_id":"heart"`)
}
