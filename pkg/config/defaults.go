package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultMaxEntries     = 1000
	MaxMaxEntries         = 100000
	DefaultOutput         = "text"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvLogSources = "LOGCAT_LOG_SOURCES"
	EnvFormat     = "LOGCAT_FORMAT"
	EnvMaxEntries = "LOGCAT_MAX_ENTRIES"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources: []string{},
		Format:     "auto",
		MaxEntries: DefaultMaxEntries,
		Output:     DefaultOutput,
	}
}

// Defaults returns DefaultConfig already validated. It panics if the built-in
// defaults do not validate.
func Defaults() *Config {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if sources := os.Getenv(EnvLogSources); sources != "" {
		c.LogSources = nil
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.LogSources = append(c.LogSources, s)
			}
		}
	}

	if format := os.Getenv(EnvFormat); format != "" {
		c.Format = format
	}

	if raw := os.Getenv(EnvMaxEntries); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvMaxEntries, raw)
		}
		c.MaxEntries = n
	}

	return nil
}

// FromEnvironment returns the default configuration with environment
// overrides applied, validated. It is used when no profile is given.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
