package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks struct tags, reporting fields by their YAML names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a configuration for errors, parses the format and builds
// the filter.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return describeValidation(err)
	}

	format, err := model.ParseFormat(cfg.Format)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	cfg.parsedFormat = format

	f, err := BuildFilter(cfg.Filter)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	cfg.compiledFilter = f

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// describeValidation turns validator errors into one readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root struct name: "Config.webhooks[0].url" -> "webhooks[0].url"
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: is required", field))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be between 1 and %d, got %v", field, MaxMaxEntries, fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s: invalid url %q", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s check", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// BuildFilter converts the YAML filter section into a Filter. Every error
// wraps model.ErrInvalidFilter.
func BuildFilter(fc FilterConfig) (*filter.Filter, error) {
	opts := filter.Options{
		SearchPattern: fc.SearchPattern,
		Source:        fc.Source,
	}

	for _, raw := range fc.Levels {
		level, err := model.ParseLevelStrict(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidFilter, err)
		}
		opts.Levels = append(opts.Levels, level)
	}

	var err error
	if opts.Since, err = ParseTime(fc.Since); err != nil {
		return nil, fmt.Errorf("since: %w", err)
	}
	if opts.Until, err = ParseTime(fc.Until); err != nil {
		return nil, fmt.Errorf("until: %w", err)
	}

	if opts.HasStackTrace, err = filter.ParsePresence(fc.HasStackTrace); err != nil {
		return nil, err
	}

	return filter.New(opts)
}

// timeLayouts are accepted for filter bounds, most specific first. Values
// without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a filter bound. The empty string yields the zero time,
// meaning no bound.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q (want RFC 3339)", model.ErrInvalidFilter, s)
}

// ValidateWebhook checks a webhook URL and fills in the default trigger and
// timeout. The token is expanded from the environment when it names a variable.
func ValidateWebhook(wh *WebhookConfig) error {
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger == "" {
		wh.Trigger = WebhookTriggerOnErrors
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
