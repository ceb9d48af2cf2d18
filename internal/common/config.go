package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
	Cleanup     CleanupConfig   `toml:"cleanup"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SchedulerConfig tunes the dispatch loop and retry behavior
type SchedulerConfig struct {
	PollInterval   string `toml:"poll_interval"`    // fallback dispatch re-check interval, e.g. "500ms"
	RetryBaseDelay string `toml:"retry_base_delay"` // linear backoff base, e.g. "2s"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// CleanupConfig controls removal of terminal batches from active memory
type CleanupConfig struct {
	Schedule    string `toml:"schedule"`     // cron expression, e.g. "@every 5m"
	GracePeriod string `toml:"grace_period"` // retention after terminal status, e.g. "30m"
}

var appValidator = validator.New()

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/sitewright",
				ResetOnStartup: false,
			},
		},
		Scheduler: SchedulerConfig{
			PollInterval:   "500ms",
			RetryBaseDelay: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Cleanup: CleanupConfig{
			Schedule:    "@every 5m",
			GracePeriod: "30m",
		},
	}
}

// LoadFromFiles loads configuration from defaults, then applies each file in
// order. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural validity and duration/cron syntax
func (c *Config) Validate() error {
	if err := appValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.ParseDuration(c.Scheduler.PollInterval); err != nil {
		return fmt.Errorf("invalid scheduler.poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Scheduler.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid scheduler.retry_base_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.Cleanup.GracePeriod); err != nil {
		return fmt.Errorf("invalid cleanup.grace_period: %w", err)
	}
	return nil
}

// PollInterval returns the parsed dispatch poll interval
func (c *SchedulerConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// RetryBaseDelayDuration returns the parsed retry base delay
func (c *SchedulerConfig) RetryBaseDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryBaseDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GracePeriodDuration returns the parsed cleanup grace period
func (c *CleanupConfig) GracePeriodDuration() time.Duration {
	d, err := time.ParseDuration(c.GracePeriod)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}
