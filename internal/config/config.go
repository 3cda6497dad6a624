// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultPort            = 8000
	DefaultAPIURL          = "http://localhost:8000"
	DefaultCrawlTimeout    = 30 * time.Second
	DefaultBulkConcurrency = 4
	DefaultCheckpointsDir  = "checkpoints"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseURL    string `json:"database_url,omitempty"`    // PostgreSQL connection URL
	CheckpointsDir string `json:"checkpoints_dir,omitempty"` // Directory holding named snapshots

	// Server
	Port int `json:"port,omitempty"`

	// Client
	APIURL string `json:"api_url,omitempty"` // Base URL of a running prflow server

	// Crawling
	UseBrowser      bool     `json:"use_browser,omitempty"`      // Fall back to headless Chrome for thin pages
	CrawlTimeout    Duration `json:"crawl_timeout,omitempty"`    // Per-request fetch timeout, e.g. "45s"
	BulkConcurrency int      `json:"bulk_concurrency,omitempty"` // Rows crawled at once during CSV uploads

	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// Duration reads a JSON string such as "30s" or a number of seconds.
type Duration time.Duration

// UnmarshalJSON accepts "1m30s" style strings and plain seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration in time.Duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads DATABASE_URL, PORT and PRFLOW_API_URL. Call it after
// godotenv has loaded any .env file.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIURL:      os.Getenv("PRFLOW_API_URL"),
	}
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Port = port
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.BulkConcurrency < 0 {
		return fmt.Errorf("config error: 'bulk_concurrency' must be non-negative")
	}
	if c.CrawlTimeout < 0 {
		return fmt.Errorf("config error: 'crawl_timeout' must be non-negative")
	}

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'api_url' must be an absolute URL: %s", c.APIURL)
		}
	}

	if c.CheckpointsDir != "" {
		if info, err := os.Stat(c.CheckpointsDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: checkpoints_dir is not a directory: %s", c.CheckpointsDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the package defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIURL == "" {
		result.APIURL = defaults.APIURL
	}
	if result.APIURL == "" {
		result.APIURL = DefaultAPIURL
	}
	if result.CheckpointsDir == "" {
		result.CheckpointsDir = defaults.CheckpointsDir
	}
	if result.CheckpointsDir == "" {
		result.CheckpointsDir = DefaultCheckpointsDir
	}

	// Numeric fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Port == 0 {
		result.Port = DefaultPort
	}
	if result.BulkConcurrency == 0 {
		result.BulkConcurrency = defaults.BulkConcurrency
	}
	if result.BulkConcurrency == 0 {
		result.BulkConcurrency = DefaultBulkConcurrency
	}
	if result.CrawlTimeout == 0 {
		result.CrawlTimeout = defaults.CrawlTimeout
	}
	if result.CrawlTimeout == 0 {
		result.CrawlTimeout = Duration(DefaultCrawlTimeout)
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
