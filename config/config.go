// Package config loads socialgraph configuration from an optional YAML or TOML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/layout"
)

// Config is the top-level configuration.
type Config struct {
	Neo4j       Neo4jConfig       `json:"neo4j" yaml:"neo4j" toml:"neo4j"`
	Aggregation AggregationConfig `json:"aggregation" yaml:"aggregation" toml:"aggregation"`
	Layout      layout.Config     `json:"layout" yaml:"layout" toml:"layout"`
	Log         LogConfig         `json:"log" yaml:"log" toml:"log"`
}

// Neo4jConfig holds the graph store connection settings.
type Neo4jConfig struct {
	URI      string `json:"uri" yaml:"uri" toml:"uri" validate:"required"`
	Username string `json:"username" yaml:"username" toml:"username"`
	Password string `json:"-" yaml:"password" toml:"password"`
	Database string `json:"database" yaml:"database" toml:"database" validate:"required"`
}

// AggregationConfig bounds neighborhood aggregation.
type AggregationConfig struct {
	MaxHops int `json:"max_hops" yaml:"max_hops" toml:"max_hops" validate:"gte=0,lte=2"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" toml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Aggregation: AggregationConfig{MaxHops: 2},
		Layout:      layout.DefaultConfig(),
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a configuration from the defaults, the file at path and the environment, in
// that order, and validates the result. The file is read as TOML when its name ends in
// .toml and as YAML otherwise; it is skipped when path is empty or the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overrides cfg from the environment. lookup is os.LookupEnv outside tests.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("NEO4J_URI"); ok && v != "" {
		cfg.Neo4j.URI = v
	}
	if v, ok := lookup("NEO4J_USERNAME"); ok && v != "" {
		cfg.Neo4j.Username = v
	}
	if v, ok := lookup("NEO4J_PASSWORD"); ok {
		cfg.Neo4j.Password = v
	}
	if v, ok := lookup("NEO4J_DATABASE"); ok && v != "" {
		cfg.Neo4j.Database = v
	}
	if v, ok := lookup("SOCIALGRAPH_MAX_HOPS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Aggregation.MaxHops = n
		}
	}
	if v, ok := lookup("SOCIALGRAPH_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("SOCIALGRAPH_LOG_FORMAT"); ok && v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
}

var validate = validator.New()

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed on '%s'", fe.Namespace(), fe.Tag())
		}
		return err
	}
	if c.Layout.Width <= 2*c.Layout.NodeRadius || c.Layout.Height <= 2*c.Layout.NodeRadius {
		return fmt.Errorf("layout: area %gx%g too small for node radius %g",
			c.Layout.Width, c.Layout.Height, c.Layout.NodeRadius)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the configured handler writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
