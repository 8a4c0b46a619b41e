// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// GitHubConfig holds GitHub API client settings
type GitHubConfig struct {
	BaseURL    string `yaml:"base_url"`    // API base URL, override for GitHub Enterprise
	MaxRetries int    `yaml:"max_retries"` // Rate-limit retry attempts
	BaseDelay  string `yaml:"base_delay"`  // Initial backoff delay (e.g., "1s")
	PacingMs   int    `yaml:"pacing_ms"`   // Delay between dependent per-repo calls
}

// AIConfig holds AI insight backend settings
type AIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig holds cache TTL overrides
type CacheConfig struct {
	SnapshotTTL string `yaml:"snapshot_ttl"` // e.g., "30m"
	RepoTTL     string `yaml:"repo_ttl"`
	ProfileTTL  string `yaml:"profile_ttl"`
	InsightsTTL string `yaml:"insights_ttl"`
}

// GoalsConfig holds goal storage settings
type GoalsConfig struct {
	Path string `yaml:"path"` // SQLite database path
}

// AnalyticsConfig holds usage analytics settings
type AnalyticsConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// Config represents the application configuration
type Config struct {
	GitHub       GitHubConfig    `yaml:"github"`
	AI           AIConfig        `yaml:"ai"`
	Cache        CacheConfig     `yaml:"cache"`
	Goals        GoalsConfig     `yaml:"goals"`
	Analytics    AnalyticsConfig `yaml:"analytics"`
	StorePath    string          `yaml:"store_path"`    // key-value store database path
	OutputFormat string          `yaml:"output_format"` // text or json
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:    "https://api.github.com",
			MaxRetries: 3,
			BaseDelay:  "1s",
			PacingMs:   250,
		},
		AI: AIConfig{
			BaseURL: "http://localhost:8000",
		},
		Goals: GoalsConfig{
			Path: filepath.Join(GetDataDir(), "goals.db"),
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		StorePath:    filepath.Join(GetDataDir(), "devtracker.db"),
		OutputFormat: "text",
	}
}

// Load loads configuration from the specified path, or the default XDG
// path if empty. If the config file doesn't exist, it creates one with
// defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	// Apply defaults for unset fields
	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = "https://api.github.com"
	}
	if cfg.GitHub.MaxRetries == 0 {
		cfg.GitHub.MaxRetries = 3
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "http://localhost:8000"
	}
	if cfg.Goals.Path == "" {
		cfg.Goals.Path = filepath.Join(GetDataDir(), "goals.db")
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(GetDataDir(), "devtracker.db")
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}

	cfg.Goals.Path = ExpandPath(cfg.Goals.Path)
	cfg.StorePath = ExpandPath(cfg.StorePath)

	return cfg, nil
}

// save writes the configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation and comments
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("github.max_retries must not be negative, got %d", c.GitHub.MaxRetries)
	}
	if c.GitHub.BaseDelay != "" {
		if _, err := time.ParseDuration(c.GitHub.BaseDelay); err != nil {
			return fmt.Errorf("invalid duration for github.base_delay: %q", c.GitHub.BaseDelay)
		}
	}

	for name, ttl := range map[string]string{
		"cache.snapshot_ttl": c.Cache.SnapshotTTL,
		"cache.repo_ttl":     c.Cache.RepoTTL,
		"cache.profile_ttl":  c.Cache.ProfileTTL,
		"cache.insights_ttl": c.Cache.InsightsTTL,
	} {
		if ttl == "" {
			continue
		}
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, ttl)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", name, ttl)
		}
	}

	if c.Analytics.RetentionDays < 0 {
		return fmt.Errorf("analytics.retention_days must not be negative, got %d", c.Analytics.RetentionDays)
	}

	return nil
}

// BaseDelay returns the parsed GitHub backoff base delay, or the given
// fallback when unset.
func (c *Config) BaseDelay(fallback time.Duration) time.Duration {
	if c.GitHub.BaseDelay == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.GitHub.BaseDelay)
	if err != nil {
		return fallback
	}
	return d
}

// CacheTTL returns a parsed TTL override, or the given fallback when
// the field is unset or invalid.
func CacheTTL(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "devtracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "devtracker")
	}
	return filepath.Join(home, fallbackPath, "devtracker")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the cache directory following XDG spec
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
