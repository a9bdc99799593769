package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/posts"
)

const (
	// JSONFileName is the JSON configuration file name.
	JSONFileName = "postboard.json"

	// YAMLFileName is the YAML configuration file name.
	YAMLFileName = "postboard.yaml"

	// DefaultAddr is the default listen address of the serve command.
	DefaultAddr = ":8080"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "postboard"
)

// Config represents the complete postboard configuration.
type Config struct {
	// Serve contains HTTP settings for the serve command.
	Serve ServeConfig `json:"serve" yaml:"serve"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// Store contains post store settings.
	Store StoreConfig `json:"store" yaml:"store"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Seed lists the posts the store starts with.
	Seed []SeedPost `json:"seed,omitempty" yaml:"seed,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig contains HTTP settings.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// StoreConfig contains post store settings.
type StoreConfig struct {
	// InitialSync sends the current snapshot to every new bridge.
	InitialSync bool `json:"initialSync" yaml:"initialSync"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace" yaml:"namespace"`
}

// SeedPost is one preloaded post.
type SeedPost struct {
	ID   uint64 `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Serve:   ServeConfig{Addr: DefaultAddr},
		Log:     LogConfig{Level: "info", Format: "text"},
		Store:   StoreConfig{InitialSync: true},
		Metrics: MetricsConfig{Namespace: DefaultNamespace},
	}
}

// Load reads configuration from dir, then applies environment overrides and
// validates the result. postboard.json wins over postboard.yaml when both
// exist. Without either file, defaults are used.
func Load(dir string) (*Config, error) {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	cfg := New()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml/.yml for YAML, anything else for JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Create " + JSONFileName + " or drop the --config flag to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment holds the POSTBOARD_* overrides. Unset variables keep the
// value already loaded.
type environment struct {
	Addr        string `env:"POSTBOARD_ADDR"`
	LogLevel    string `env:"POSTBOARD_LOG_LEVEL"`
	LogFormat   string `env:"POSTBOARD_LOG_FORMAT"`
	InitialSync bool   `env:"POSTBOARD_INITIAL_SYNC"`
	Namespace   string `env:"POSTBOARD_METRICS_NAMESPACE"`
}

// finish applies environment overrides and defaults, then validates.
func (c *Config) finish() error {
	e := environment{
		Addr:        c.Serve.Addr,
		LogLevel:    c.Log.Level,
		LogFormat:   c.Log.Format,
		InitialSync: c.Store.InitialSync,
		Namespace:   c.Metrics.Namespace,
	}
	if err := env.Parse(&e); err != nil {
		return errors.New("E121").Wrap(err)
	}
	c.Serve.Addr = e.Addr
	c.Log.Level = e.LogLevel
	c.Log.Format = e.LogFormat
	c.Store.InitialSync = e.InitialSync
	c.Metrics.Namespace = e.Namespace

	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := levels[c.Log.Level]; !ok {
		return errors.New("E122").
			WithDetail("log.level must be one of debug, info, warn, error; got " + c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E122").
			WithDetail("log.format must be text or json; got " + c.Log.Format)
	}

	seen := make(map[uint64]bool, len(c.Seed))
	for _, p := range c.Seed {
		if seen[p.ID] {
			return errors.New("E122").
				WithDetail("seed lists post " + posts.PostID(p.ID).String() + " more than once")
		}
		seen[p.ID] = true
	}
	return nil
}

// Path returns the path where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// SeedPosts converts the seed list for posts.WithSeed.
func (c *Config) SeedPosts() []posts.Post {
	out := make([]posts.Post, 0, len(c.Seed))
	for _, p := range c.Seed {
		out = append(out, posts.Post{ID: posts.PostID(p.ID), Text: p.Text})
	}
	return out
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	return levels[strings.ToLower(l.Level)]
}

// NewLogger builds a logger writing to w with the configured level and format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
