// Package config loads and validates application configuration from
// YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App     App     `mapstructure:"app"`
	Feeds   Feeds   `mapstructure:"feeds"`
	Filters Filters `mapstructure:"filters"`
	Scrape  Scrape  `mapstructure:"scrape"`
	YouTube YouTube `mapstructure:"youtube"`
	Cache   Cache   `mapstructure:"cache"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Feeds holds RSS feed configuration.
type Feeds struct {
	URLs          []string `mapstructure:"urls"`
	Timeout       string   `mapstructure:"timeout"`
	UserAgent     string   `mapstructure:"user_agent"`
	LookbackHours int      `mapstructure:"lookback_hours"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed feed fetch timeout.
func (f Feeds) TimeoutDuration() time.Duration { return f.timeout }

// Filters holds keyword filtering configuration. Empty lists disable
// the corresponding dimension.
type Filters struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// Scrape holds full-article scraping configuration.
type Scrape struct {
	Enabled     bool   `mapstructure:"enabled"`
	MinChars    int    `mapstructure:"min_chars"`
	Concurrency int    `mapstructure:"concurrency"`
	Timeout     string `mapstructure:"timeout"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed scrape timeout.
func (s Scrape) TimeoutDuration() time.Duration { return s.timeout }

// YouTube holds YouTube source configuration.
type YouTube struct {
	Enabled             bool     `mapstructure:"enabled"`
	TranscriptLanguages []string `mapstructure:"transcript_languages"`
	ProxyBaseURL        string   `mapstructure:"proxy_base_url"`
	Timeout             string   `mapstructure:"timeout"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed YouTube request timeout.
func (y YouTube) TimeoutDuration() time.Duration { return y.timeout }

// Cache holds local store configuration.
type Cache struct {
	Directory string `mapstructure:"directory"`
}

// Load reads configuration from the given file (or the default search
// path when empty), environment variables, and defaults. It is called
// once at process start; the resulting value is passed into
// constructors rather than read through a global.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".sift")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("SIFT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcess(config); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "~/.sift")

	v.SetDefault("feeds.urls", []string{})
	v.SetDefault("feeds.timeout", "30s")
	v.SetDefault("feeds.user_agent", "Mozilla/5.0 (compatible; Sift RSS Reader/1.0)")
	v.SetDefault("feeds.lookback_hours", 24)

	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.min_chars", 100)
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.timeout", "30s")

	v.SetDefault("youtube.enabled", false)
	v.SetDefault("youtube.transcript_languages", []string{"en"})
	v.SetDefault("youtube.proxy_base_url", "")
	v.SetDefault("youtube.timeout", "30s")

	v.SetDefault("cache.directory", "")
}

// postProcess expands paths, parses durations, and validates values.
func postProcess(config *Config) error {
	config.App.DataDir = expandPath(config.App.DataDir)
	if config.Cache.Directory == "" {
		config.Cache.Directory = config.App.DataDir
	}
	config.Cache.Directory = expandPath(config.Cache.Directory)

	var err error
	if config.Feeds.timeout, err = parseTimeout("feeds.timeout", config.Feeds.Timeout); err != nil {
		return err
	}
	if config.Scrape.timeout, err = parseTimeout("scrape.timeout", config.Scrape.Timeout); err != nil {
		return err
	}
	if config.YouTube.timeout, err = parseTimeout("youtube.timeout", config.YouTube.Timeout); err != nil {
		return err
	}

	if config.Feeds.LookbackHours <= 0 {
		return fmt.Errorf("feeds.lookback_hours must be positive, got %d", config.Feeds.LookbackHours)
	}
	if config.Scrape.Concurrency <= 0 {
		config.Scrape.Concurrency = 1
	}
	return nil
}

func parseTimeout(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, value)
	}
	return d, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
