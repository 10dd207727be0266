package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juparave/cotestpilot/internal/util"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Vision endpoint settings
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // Custom API endpoint, empty for the OpenAI default
	Model   string `yaml:"model"`

	// Check behavior
	APIRateLimit            float64 `yaml:"api_rate_limit"` // Outbound calls per second
	MaxRetries              int     `yaml:"max_retries"`
	ScreenshotRetentionDays int     `yaml:"screenshot_retention_days"` // Informational; no sweep enforces it yet

	// Paths
	OutputDir     string `yaml:"output_dir"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	TestersFile   string `yaml:"testers_file"` // Optional override of the built-in persona catalog

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Verbose  bool   `yaml:"-"` // Set via CLI only
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model:                   "gpt-4o-mini",
		APIRateLimit:            1.0,
		MaxRetries:              3,
		ScreenshotRetentionDays: 30,
		OutputDir:               "ai_check_results",
		ScreenshotDir:           "screenshots",
		LogLevel:                "info",
		LogFile:                 "ai_checks.log",
	}
}

// Load reads configuration from file and merges with defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil // Use defaults if can't find home
		}
		path = filepath.Join(homeDir, ".config", "cotestpilot", "config.yaml")
	}

	path = util.ExpandPath(path)

	// Read config file if it exists
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.OutputDir = util.ExpandPath(cfg.OutputDir)
	cfg.ScreenshotDir = util.ExpandPath(cfg.ScreenshotDir)
	cfg.TestersFile = util.ExpandPath(cfg.TestersFile)

	return cfg, nil
}

// Validate checks if the configuration is valid. A missing API key is not an
// error here: the check degrades to an error-shaped result when the endpoint
// is actually called.
func (c *Config) Validate() error {
	if c.APIRateLimit <= 0 {
		return fmt.Errorf("api_rate_limit must be greater than zero")
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}

	if c.APIKey == "" {
		// Check environment variable
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.APIKey = key
		}
	}

	return nil
}
