package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// errNoSources is returned when neither arguments nor the profile name a file.
var errNoSources = errors.New("no log files given (pass files or set log_sources in the profile)")

// SourceOptions selects the files to read and how to parse them.
type SourceOptions struct {
	Format     string
	MaxEntries int
}

func (o *SourceOptions) register(cmd *cobra.Command, withMax bool) {
	cmd.Flags().StringVarP(&o.Format, "format", "f", "auto",
		"Log format ("+formatNames()+")")
	if withMax {
		cmd.Flags().IntVarP(&o.MaxEntries, "max-entries", "m", config.DefaultMaxEntries,
			fmt.Sprintf("Maximum entries to keep (1-%d)", config.MaxMaxEntries))
	}
}

// format returns the flag value when set, else the profile format.
func (o *SourceOptions) format(cmd *cobra.Command, cfg *config.Config) (model.Format, error) {
	if !cmd.Flags().Changed("format") {
		return cfg.ParsedFormat(), nil
	}
	return model.ParseFormat(o.Format)
}

// maxEntries returns the flag value when set, else the profile cap.
func (o *SourceOptions) maxEntries(cmd *cobra.Command, cfg *config.Config) (int, error) {
	if !cmd.Flags().Changed("max-entries") {
		return cfg.MaxEntries, nil
	}
	if o.MaxEntries < 1 || o.MaxEntries > config.MaxMaxEntries {
		return 0, fmt.Errorf("--max-entries must be between 1 and %d, got %d", config.MaxMaxEntries, o.MaxEntries)
	}
	return o.MaxEntries, nil
}

func formatNames() string {
	names := []string{"auto"}
	for _, f := range model.Formats() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}

// resolvePaths expands the arguments, or the profile sources when there are
// none, into a list of files.
func resolvePaths(args []string, cfg *config.Config) ([]string, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.LogSources
	}
	if len(patterns) == 0 {
		return nil, errNoSources
	}
	return parser.ExpandGlobs(patterns)
}

// FilterOptions holds the filter flags shared by filter, stream and export.
type FilterOptions struct {
	Levels     []string
	Search     string
	Since      string
	Until      string
	Source     string
	StackTrace string
}

func (o *FilterOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.Levels, "level", "l", nil, "Keep only these levels (repeatable)")
	cmd.Flags().StringVarP(&o.Search, "search", "s", "", "Regular expression to find in message or raw line")
	cmd.Flags().StringVar(&o.Since, "since", "", "Keep entries at or after this RFC 3339 time")
	cmd.Flags().StringVar(&o.Until, "until", "", "Keep entries at or before this RFC 3339 time")
	cmd.Flags().StringVar(&o.Source, "source", "", "Keep entries whose source matches exactly")
	cmd.Flags().StringVar(&o.StackTrace, "stack-trace", "", "Require (yes) or exclude (no) stack traces")
}

// build overlays the flags that were set onto the profile filter section.
func (o *FilterOptions) build(cmd *cobra.Command, cfg *config.Config) (*filter.Filter, error) {
	fc := cfg.Filter
	flags := cmd.Flags()

	if flags.Changed("level") {
		fc.Levels = o.Levels
	}
	if flags.Changed("search") {
		fc.SearchPattern = o.Search
	}
	if flags.Changed("since") {
		fc.Since = o.Since
	}
	if flags.Changed("until") {
		fc.Until = o.Until
	}
	if flags.Changed("source") {
		fc.Source = o.Source
	}
	if flags.Changed("stack-trace") {
		fc.HasStackTrace = o.StackTrace
	}

	return config.BuildFilter(fc)
}

// outputFormat returns the --output flag when set, else the profile output.
func outputFormat(cmd *cobra.Command, value string, cfg *config.Config) string {
	if cmd.Flags().Changed("output") || cfg.Output == "" {
		return value
	}
	return cfg.Output
}
