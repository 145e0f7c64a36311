package fixedpool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Config is the file representation of a WorkerPool setup, in YAML or JSON.
//
//	workers: 8
//	log_level: info
//	metrics:
//	  enabled: true
//	  namespace: myapp
//	  subsystem: pool
type Config struct {
	Workers  int           `yaml:"workers" json:"workers"`
	LogLevel string        `yaml:"log_level" json:"log_level"`
	Metrics  MetricsConfig `yaml:"metrics" json:"metrics"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// LoadConfig reads a config file, the format is picked by the extension.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("fixedpool: read config: %w", err)
	}
	return ParseConfig(data, filepath.Ext(path))
}

// ParseConfig decodes data in the format given by ext (".yaml", ".yml" or ".json")
// and validates the result.
func ParseConfig(data []byte, ext string) (Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("fixedpool: parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("fixedpool: parse JSON config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("fixedpool: unsupported config format: %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the worker count and the log level.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers=%d", ErrInvalidSize, c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel, empty means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("fixedpool: invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Options builds the Options described by the config.
// The logger writes text to stderr and the metrics, if enabled, are registered with reg.
func (c Config) Options(reg prometheus.Registerer) (Options, error) {
	level, err := c.Level()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
	if c.Metrics.Enabled {
		m, err := NewMetrics(c.Metrics.Namespace, c.Metrics.Subsystem, reg)
		if err != nil {
			return Options{}, fmt.Errorf("fixedpool: register metrics: %w", err)
		}
		opts.Metrics = m
	}
	return opts, nil
}

// NewFromConfig creates a WorkerPool from the config.
func NewFromConfig(c Config, reg prometheus.Registerer) (*WorkerPool, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := c.Options(reg)
	if err != nil {
		return nil, err
	}
	return NewWith(c.Workers, opts)
}
