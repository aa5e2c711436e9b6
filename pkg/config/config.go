// Package config loads run configuration from a JSON file, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CacheConfig controls the optional Redis result cache.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	RedisAddr string `mapstructure:"redis_addr"`
	TTLHours  int    `mapstructure:"ttl_hours"`
}

// Config holds the run configuration.
type Config struct {
	// GrobidServer is the server host, optionally with a scheme
	// (plain "localhost" becomes "http://localhost").
	GrobidServer string `mapstructure:"grobid_server"`

	// GrobidPort is the server port. Zero means no explicit port.
	GrobidPort int `mapstructure:"grobid_port"`

	// BatchSize bounds how many discovered paths are buffered before a
	// batch is drained.
	BatchSize int `mapstructure:"batch_size"`

	// NumberOfProcesses is the worker pool size per batch.
	NumberOfProcesses int `mapstructure:"number_of_processes"`

	// SleepTime is the wait in seconds after a 503 overload response.
	SleepTime int `mapstructure:"sleep_time"`

	// Coordinates is the element list sent with tei_coordinates.
	Coordinates string `mapstructure:"coordinates"`

	// TimeoutSeconds is the per-attempt HTTP timeout. Zero disables it.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// RetryMaxAttempts bounds submissions per file. Zero retries forever.
	RetryMaxAttempts int `mapstructure:"retry_max_attempts"`

	// RetryBackoffMultiplier grows the overload wait when > 1.0.
	RetryBackoffMultiplier float64 `mapstructure:"retry_backoff_multiplier"`

	// RetryMaxBackoffSeconds caps the grown wait.
	RetryMaxBackoffSeconds int `mapstructure:"retry_max_backoff_seconds"`

	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string `mapstructure:"metrics_addr"`

	Cache CacheConfig `mapstructure:"cache"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		GrobidServer:           "localhost",
		GrobidPort:             8070,
		BatchSize:              1000,
		NumberOfProcesses:      10,
		SleepTime:              5,
		Coordinates:            "persName,figure,ref,biblStruct,formula",
		TimeoutSeconds:         0,
		RetryMaxAttempts:       0,
		RetryBackoffMultiplier: 1.0,
		RetryMaxBackoffSeconds: 60,
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTLHours:  168,
		},
	}
}

// Load reads configuration from the given file path, the GROBID_*
// environment, and defaults. An empty path falls back to ./config.json
// when present; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("grobid_server", defaults.GrobidServer)
	v.SetDefault("grobid_port", defaults.GrobidPort)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("number_of_processes", defaults.NumberOfProcesses)
	v.SetDefault("sleep_time", defaults.SleepTime)
	v.SetDefault("coordinates", defaults.Coordinates)
	v.SetDefault("timeout_seconds", defaults.TimeoutSeconds)
	v.SetDefault("retry_max_attempts", defaults.RetryMaxAttempts)
	v.SetDefault("retry_backoff_multiplier", defaults.RetryBackoffMultiplier)
	v.SetDefault("retry_max_backoff_seconds", defaults.RetryMaxBackoffSeconds)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.redis_addr", defaults.Cache.RedisAddr)
	v.SetDefault("cache.ttl_hours", defaults.Cache.TTLHours)

	// Environment variables with GROBID_ prefix
	v.SetEnvPrefix("GROBID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")

		// Default config file is optional.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BaseURL derives the server root URL.
func (c *Config) BaseURL() string {
	server := c.GrobidServer
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	if c.GrobidPort > 0 {
		return fmt.Sprintf("%s:%d", server, c.GrobidPort)
	}
	return server
}

// Validate checks the configuration for values the run cannot work with.
func (c *Config) Validate() error {
	if c.GrobidServer == "" {
		return fmt.Errorf("grobid_server is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.NumberOfProcesses <= 0 {
		return fmt.Errorf("number_of_processes must be > 0, got %d", c.NumberOfProcesses)
	}
	if c.SleepTime < 0 {
		return fmt.Errorf("sleep_time must be >= 0, got %d", c.SleepTime)
	}
	return nil
}
