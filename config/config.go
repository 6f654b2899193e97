// Package config holds runtime configuration for patrascan.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds scraper, store, and CLI configuration.
type Config struct {
	PortalURL     string        `mapstructure:"portal_url"`
	LoginPath     string        `mapstructure:"login_path"`
	ListingPath   string        `mapstructure:"listing_path"`
	DetailPattern string        `mapstructure:"detail_pattern"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DataDir       string        `mapstructure:"data_dir"`
	OutputFile    string        `mapstructure:"output_file"`
	OutputFormat  string        `mapstructure:"output_format"` // csv, json, or dual
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	LinkCacheSize int           `mapstructure:"link_cache_size"`
	Verbose       bool          `mapstructure:"verbose"`
}

// DefaultConfig returns conservative defaults for the production portal.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		PortalURL:     "https://patraplus.ir",
		LoginPath:     "/user",
		ListingPath:   "/user",
		DetailPattern: "view_search_writer",
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Timeout:       15 * time.Second,
		DataDir:       filepath.Join(home, ".patrascan"),
		OutputFile:    "output/records.csv",
		OutputFormat:  "csv",
		MetricsAddr:   "",
		LinkCacheSize: 8,
	}
}

// Load builds the configuration from defaults, an optional config.yaml
// in the data directory, PATRA_* environment variables, and a .env
// file in the working directory when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaults := DefaultConfig()
	v := viper.New()
	v.SetDefault("portal_url", defaults.PortalURL)
	v.SetDefault("login_path", defaults.LoginPath)
	v.SetDefault("listing_path", defaults.ListingPath)
	v.SetDefault("detail_pattern", defaults.DetailPattern)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("output_file", defaults.OutputFile)
	v.SetDefault("output_format", defaults.OutputFormat)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("link_cache_size", defaults.LinkCacheSize)

	v.SetEnvPrefix("PATRA")
	v.AutomaticEnv()
	_ = v.BindEnv("username", "PATRA_USERNAME")
	_ = v.BindEnv("password", "PATRA_PASSWORD")
	_ = v.BindEnv("data_dir", "PATRA_DATA_DIR")
	_ = v.BindEnv("portal_url", "PATRA_PORTAL_URL")
	_ = v.BindEnv("metrics_addr", "PATRA_METRICS_ADDR")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaults.DataDir)
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &cfg, nil
}

// ListingURL is the absolute URL of the customer listing page.
func (c *Config) ListingURL() string {
	return c.PortalURL + c.ListingPath
}

// LoginURL is the absolute URL of the portal login page.
func (c *Config) LoginURL() string {
	return c.PortalURL + c.LoginPath
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.PortalURL == "" {
		return fmt.Errorf("portal URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.PortalURL)
	if err != nil {
		return fmt.Errorf("invalid portal URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("portal URL must include a host")
	}
	if c.DetailPattern == "" {
		return fmt.Errorf("detail pattern cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.LinkCacheSize <= 0 {
		return fmt.Errorf("link cache size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}
