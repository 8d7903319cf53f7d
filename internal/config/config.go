package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Store     StoreConfig   `yaml:"store"`
	Templates CatalogConfig `yaml:"templates"`
	Output    OutputConfig  `yaml:"output"`
	Defaults  Defaults      `yaml:"defaults"`
	Assets    AssetsConfig  `yaml:"assets"`
	Retry     RetryConfig   `yaml:"retry"`
	Watch     WatchConfig   `yaml:"watch"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// StoreConfig locates the property store.
type StoreConfig struct {
	// Path is the SQLite database file holding property records.
	Path string `yaml:"path"`
}

// CatalogConfig locates the template catalog.
type CatalogConfig struct {
	// Dir is the directory scanned for template definitions.
	Dir string `yaml:"dir"`
	// PackURL is an optional git repository holding a template pack;
	// `homeshow templates fetch` clones or updates it into Dir.
	PackURL string `yaml:"pack_url,omitempty"`
	// PackBranch selects the pack branch (default branch when empty).
	PackBranch string `yaml:"pack_branch,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	// Root is the base directory generated sites are written beneath
	// when the caller passes a relative target.
	Root string `yaml:"root"`
}

// AssetsConfig tunes the media pipeline.
type AssetsConfig struct {
	ThumbWidth  int `yaml:"thumb_width"`
	ThumbHeight int `yaml:"thumb_height"`
	// Concurrency bounds parallel image processing (0 = NumCPU).
	Concurrency int `yaml:"concurrency"`
	// HeroLimit caps the hero slider image count.
	HeroLimit int `yaml:"hero_limit"`
}

// RetryConfig holds bounded-retry settings for transient filesystem failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
	MaxRetries   int              `yaml:"max_retries"`
}

// WatchConfig drives the watch command.
type WatchConfig struct {
	// Debounce collapses bursts of filesystem events (duration string).
	Debounce string `yaml:"debounce"`
	// Schedule optionally regenerates on a fixed interval (duration string).
	Schedule string `yaml:"schedule,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// Load loads configuration from the specified file. Environment
// variables referenced in the YAML are expanded; a .env overlay is
// applied first when present.
func Load(configPath string) (*Config, error) {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load(".env", ".env.local")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path provided by operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that cannot be repaired by defaulting.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Templates.Dir == "" {
		return fmt.Errorf("templates.dir is required")
	}
	return nil
}

// normalize repairs zero/invalid values after unmarshalling.
func (c *Config) normalize() {
	d := Default()
	if c.Assets.ThumbWidth <= 0 {
		c.Assets.ThumbWidth = d.Assets.ThumbWidth
	}
	if c.Assets.ThumbHeight <= 0 {
		c.Assets.ThumbHeight = d.Assets.ThumbHeight
	}
	if c.Assets.HeroLimit <= 0 {
		c.Assets.HeroLimit = d.Assets.HeroLimit
	}
	if c.Assets.Concurrency < 0 {
		c.Assets.Concurrency = 0
	}
	if NormalizeRetryBackoff(string(c.Retry.Backoff)) == "" {
		c.Retry.Backoff = d.Retry.Backoff
	}
	if c.Output.Root == "" {
		c.Output.Root = d.Output.Root
	}
	c.Defaults.fillEmpty(d.Defaults)
}

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
