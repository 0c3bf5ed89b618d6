// Package config loads indexer settings from YAML or TOML files and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvDatabase = "SYMBOL_INDEXER_DB"
	EnvBuild    = "SYMBOL_INDEXER_BUILD"
)

// DefaultFiles are looked up in the working directory when no file is
// given.
var DefaultFiles = []string{"symbol-indexer.yaml", "symbol-indexer.yml", "symbol-indexer.toml"}

// Config is the merged configuration.
type Config struct {
	Database    string   `yaml:"database" toml:"database"`
	Build       string   `yaml:"build" toml:"build"`
	CreateBuild bool     `yaml:"create_build" toml:"create_build"`
	Workers     int      `yaml:"workers" toml:"workers"`
	Incremental bool     `yaml:"incremental" toml:"incremental"`
	Ignore      []string `yaml:"ignore" toml:"ignore"`
	Languages   []string `yaml:"languages" toml:"languages"`
	LogLevel    string   `yaml:"log_level" toml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr" toml:"metrics_addr"`
	Debounce    Duration `yaml:"watch_debounce" toml:"watch_debounce"`
}

// Duration accepts "500ms" style strings in both formats.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML
// decoder.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		CreateBuild: true,
		Incremental: true,
		LogLevel:    "info",
		Debounce:    Duration{500 * time.Millisecond},
	}
}

// Load reads path, or the first default file present when path is empty,
// then applies environment overrides. A missing default file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported format", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvBuild); v != "" {
		cfg.Build = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for _, l := range c.Languages {
		switch l {
		case "java", "python":
		default:
			return fmt.Errorf("unsupported language %q", l)
		}
	}
	return nil
}

// ParseLevel maps a level name to slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n), nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
