// Package config loads the manualforge configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caseward/manualforge/internal/classify"
)

// Config is the application configuration.
type Config struct {
	// StorePath is the SQLite database location.
	StorePath string `yaml:"store_path"`
	// Listen is the HTTP listen address for serve mode.
	Listen string       `yaml:"listen"`
	Import ImportConfig `yaml:"import"`
	Inbox  InboxConfig  `yaml:"inbox"`
	NATS   NATSConfig   `yaml:"nats"`
}

// ImportConfig carries the import pipeline knobs.
type ImportConfig struct {
	// PatternSet names the classifier convention ("decimal" or "strict").
	PatternSet string `yaml:"pattern_set"`
	// Granularity is the default h2/h3 heading hint.
	Granularity string `yaml:"granularity"`
	// DefaultActor is recorded as creator when the caller names none.
	DefaultActor string `yaml:"default_actor"`
}

// InboxConfig enables the drop-directory watcher in serve mode. An empty
// Directory disables it.
type InboxConfig struct {
	Directory string `yaml:"directory"`
	// SweepInterval is a Go duration string, e.g. "5m".
	SweepInterval string `yaml:"sweep_interval"`
}

// SweepEvery parses the sweep interval. Call Validate first.
func (c InboxConfig) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// NATSConfig enables event publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StorePath: "manualforge.db",
		Listen:    ":8080",
		Import: ImportConfig{
			PatternSet:   "decimal",
			Granularity:  "h2",
			DefaultActor: "importer",
		},
		Inbox: InboxConfig{
			SweepInterval: "5m",
		},
	}
}

// Load reads path, layering the file over defaults and environment
// overrides (MANUALFORGE_STORE, MANUALFORGE_LISTEN) over the file. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("MANUALFORGE_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("MANUALFORGE_LISTEN"); v != "" {
		cfg.Listen = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if _, err := classify.Lookup(c.Import.PatternSet); err != nil {
		return fmt.Errorf("import.pattern_set: %w", err)
	}
	switch c.Import.Granularity {
	case "", "h2", "h3":
	default:
		return fmt.Errorf("import.granularity must be h2 or h3, got %q", c.Import.Granularity)
	}
	if c.Inbox.Directory != "" {
		d, err := time.ParseDuration(c.Inbox.SweepInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("inbox.sweep_interval must be a positive duration, got %q", c.Inbox.SweepInterval)
		}
	}
	return nil
}

// Init writes a commented default configuration to path. Used by the init
// command; refuses to overwrite unless force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	const sample = `# manualforge configuration
store_path: manualforge.db
listen: ":8080"

import:
  # Classifier pattern set: decimal (default) or strict.
  pattern_set: decimal
  # Default heading granularity for Markdown sources: h2 or h3.
  granularity: h2
  default_actor: importer

# Uncomment to auto-import files dropped into a directory (serve mode).
#inbox:
#  directory: ./inbox
#  sweep_interval: 5m

# Uncomment to publish manual.imported events.
#nats:
#  url: nats://localhost:4222
#  subject: manualforge.manual.imported
`
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
