package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/analyzer"
	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/output"
)

// ParseOptions holds command-line options for the parse and filter commands.
type ParseOptions struct {
	SourceOptions
	FilterOptions

	Output  string
	Verbose bool
	Quiet   bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [log-file...]",
		Short: "Parse log files into structured entries",
		Long: `Parse one or more log files and print the entries with their statistics.

The format of each file is detected from its first line unless --format is
given. Lines that do not fit the format are kept as plain text. Several files
or glob patterns are merged into one timeline ordered by timestamp.

With no arguments the log_sources of the --config profile are read.

Example:
  logcat parse /var/log/app.log
  logcat parse --format apache_combined --max-entries 50 access.log
  logcat parse -o json 'logs/**/*.log'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts, false)
		},
	}

	opts.SourceOptions.register(cmd, true)
	registerReportFlags(cmd, opts)

	return cmd
}

// NewFilterCommand creates the filter command.
func NewFilterCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "filter [log-file...]",
		Short: "Parse log files and keep only matching entries",
		Long: `Parse log files and keep the entries that satisfy every given criterion.

Criteria not given on the command line fall back to the filter section of
the --config profile. Statistics describe the matching entries only.

Example:
  logcat filter --level error --level fatal app.log
  logcat filter --search 'timed? out' --since 2024-01-15T00:00:00Z app.log
  logcat filter --source db --stack-trace yes app.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts, true)
		},
	}

	opts.SourceOptions.register(cmd, true)
	opts.FilterOptions.register(cmd)
	registerReportFlags(cmd, opts)

	return cmd
}

func registerReportFlags(cmd *cobra.Command, opts *ParseOptions) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show files read and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no entries")
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions, filtered bool) error {
	ctx := commandContext(cmd)
	rt := runtimeFrom(cmd)

	files, err := resolvePaths(args, rt.Config)
	if err != nil {
		return err
	}

	format, err := opts.format(cmd, rt.Config)
	if err != nil {
		return err
	}

	maxEntries, err := opts.maxEntries(cmd, rt.Config)
	if err != nil {
		return err
	}

	var f *filter.Filter
	if filtered {
		if f, err = opts.FilterOptions.build(cmd, rt.Config); err != nil {
			return err
		}
	}

	formatter, err := createFormatter(outputFormat(cmd, opts.Output, rt.Config), output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		NoColor: rt.NoColor,
	})
	if err != nil {
		return err
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithFormat(format),
		analyzer.WithFilter(f),
		analyzer.WithMaxEntries(maxEntries),
		analyzer.WithLogger(rt.Logger),
	)

	result, err := a.Analyze(ctx, files)
	if err != nil {
		return err
	}

	rt.Logger.Info("parsed log files",
		zap.Strings("files", files),
		zap.Int("entries", len(result.Entries)),
		zap.Bool("truncated", result.Metadata.Truncated))

	report := output.NewReport(result)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	return nil
}

func createFormatter(name string, opts output.FormatOptions) (output.Formatter, error) {
	switch name {
	case "text":
		return output.NewTextFormatter(opts), nil
	case "json":
		return output.NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", name)
	}
}
