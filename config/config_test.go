package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Aggregation.MaxHops)
	assert.Equal(t, 960.0, cfg.Layout.Width)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Layout, cfg.Layout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socialgraph.yaml")
	data := []byte(`
neo4j:
  uri: neo4j+s://graph.example.com
  database: people
aggregation:
  max_hops: 1
layout:
  width: 1200
  charge: -200
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "neo4j+s://graph.example.com", cfg.Neo4j.URI)
	assert.Equal(t, "people", cfg.Neo4j.Database)
	assert.Equal(t, 1, cfg.Aggregation.MaxHops)
	assert.Equal(t, 1200.0, cfg.Layout.Width)
	assert.Equal(t, 640.0, cfg.Layout.Height, "unset keys keep defaults")
	assert.Equal(t, -200.0, cfg.Layout.Charge)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socialgraph.toml")
	data := []byte(`
[neo4j]
uri = "bolt://localhost:7687"
database = "people"

[aggregation]
max_hops = 0

[layout]
link_distance = 80.0
seed = 7
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "people", cfg.Neo4j.Database)
	assert.Equal(t, 0, cfg.Aggregation.MaxHops)
	assert.Equal(t, 80.0, cfg.Layout.LinkDistance)
	assert.Equal(t, uint64(7), cfg.Layout.Seed)
	assert.Equal(t, Default().Log, cfg.Log)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"hops":   "aggregation:\n  max_hops: 3\n",
		"level":  "log:\n  level: loud\n",
		"charge": "layout:\n  charge: 10\n",
		"area":   "layout:\n  width: 60\n",
		"yaml":   "neo4j: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NEO4J_URI":             "bolt://db:7687",
		"NEO4J_USERNAME":        "admin",
		"NEO4J_PASSWORD":        "secret",
		"NEO4J_DATABASE":        "",
		"SOCIALGRAPH_MAX_HOPS":  "1",
		"SOCIALGRAPH_LOG_LEVEL": "WARN",
	}
	cfg := Default()
	applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "bolt://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "admin", cfg.Neo4j.Username)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database, "empty database keeps the default")
	assert.Equal(t, 1, cfg.Aggregation.MaxHops)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socialgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("neo4j:\n  uri: bolt://file:7687\n"), 0o644))
	t.Setenv("NEO4J_URI", "bolt://env:7687")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://env:7687", cfg.Neo4j.URI)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
