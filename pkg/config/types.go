// Package config provides profile loading and validation for logcat.
package config

import (
	"time"

	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
)

// Config is a profile loaded from YAML. Every field supplies a default that
// command-line flags can override.
type Config struct {
	// LogSources lists files or glob patterns to read when none are given on
	// the command line.
	LogSources []string `yaml:"log_sources,omitempty" validate:"dive,required"`

	// Format is a format name or "auto".
	Format string `yaml:"format,omitempty"`

	// MaxEntries caps how many entries parse and filter keep.
	MaxEntries int `yaml:"max_entries,omitempty" validate:"min=1,max=100000"`

	// Output is the report format, text or json.
	Output string `yaml:"output,omitempty" validate:"omitempty,oneof=text json"`

	// Filter holds default filter criteria.
	Filter FilterConfig `yaml:"filter,omitempty"`

	// Webhooks receive statistics reports from the stats command.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" validate:"dive"`

	// Populated during validation
	parsedFormat   model.Format
	compiledFilter *filter.Filter
}

// ParsedFormat returns the validated format (FormatAuto for auto-detect).
func (c *Config) ParsedFormat() model.Format {
	return c.parsedFormat
}

// CompiledFilter returns the filter built from the Filter section.
func (c *Config) CompiledFilter() *filter.Filter {
	return c.compiledFilter
}

// FilterConfig is the YAML form of filter criteria.
type FilterConfig struct {
	// Levels keeps only entries at these levels.
	Levels []string `yaml:"levels,omitempty"`

	// SearchPattern is a regular expression searched for in the message
	// and the raw line.
	SearchPattern string `yaml:"search_pattern,omitempty"`

	// Since and Until are RFC 3339 timestamps bounding the entry time.
	Since string `yaml:"since,omitempty"`
	Until string `yaml:"until,omitempty"`

	// Source must equal the entry source exactly.
	Source string `yaml:"source,omitempty"`

	// HasStackTrace is "yes", "no" or "any".
	HasStackTrace string `yaml:"has_stack_trace,omitempty" validate:"omitempty,oneof=yes no any"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnErrors fires only when ERROR or FATAL entries were read (default).
	WebhookTriggerOnErrors WebhookTrigger = "on_errors"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending statistics reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" validate:"required,url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_errors" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty" validate:"omitempty,oneof=on_errors always never"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
