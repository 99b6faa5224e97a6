package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/output"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// StreamOptions holds command-line options for the stream and export commands.
type StreamOptions struct {
	SourceOptions
	FilterOptions

	As    string
	Out   string
	Limit int
}

// exportFormats are the document formats export accepts.
var exportFormats = []string{output.EntryFormatJSON, output.EntryFormatCSV, output.EntryFormatMsgpack}

// NewStreamCommand creates the stream command.
func NewStreamCommand() *cobra.Command {
	opts := &StreamOptions{}

	cmd := &cobra.Command{
		Use:   "stream [log-file...]",
		Short: "Write entries to stdout as they are parsed",
		Long: `Parse log files and write each entry as soon as it is read.

The default output is newline-delimited JSON, one entry per line, suitable
for piping into jq or a log shipper. Memory use does not grow with file size.
Several files are merged by timestamp.

Example:
  logcat stream app.log | jq .level
  logcat stream --level error --limit 10 app.log
  logcat stream --as text 'logs/*.log'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, args, opts)
		},
	}

	opts.SourceOptions.register(cmd, false)
	opts.FilterOptions.register(cmd)
	cmd.Flags().StringVar(&opts.As, "as", output.EntryFormatNDJSON,
		"Entry format ("+strings.Join(output.EntryFormats(), "|")+")")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Stop after this many entries (0 for no limit)")

	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &StreamOptions{}

	cmd := &cobra.Command{
		Use:   "export [log-file...]",
		Short: "Export entries as JSON, CSV or MessagePack",
		Long: `Parse log files and export the matching entries as a document.

  json     an indented array of entries
  csv      columns timestamp, level, message, source, line_number
  msgpack  a stream of MessagePack maps, one per entry

The export is written to --out, or to stdout when no path is given. An
existing file is replaced.

Example:
  logcat export --as csv --out errors.csv --level error app.log
  logcat export --as msgpack access.log > access.msgpack`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, opts)
		},
	}

	opts.SourceOptions.register(cmd, false)
	opts.FilterOptions.register(cmd)
	cmd.Flags().StringVar(&opts.As, "as", output.EntryFormatJSON,
		"Export format ("+strings.Join(exportFormats, "|")+")")
	cmd.Flags().StringVarP(&opts.Out, "out", "O", "", "Write to this file instead of stdout")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Stop after this many entries (0 for no limit)")

	return cmd
}

func runStream(cmd *cobra.Command, args []string, opts *StreamOptions) error {
	rt := runtimeFrom(cmd)

	w := bufio.NewWriter(cmd.OutOrStdout())
	ew, err := output.NewEntryWriter(opts.As, w, output.WithColor(!rt.NoColor))
	if err != nil {
		return err
	}

	n, err := writeEntries(cmd, args, opts, ew)
	if ferr := w.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("writing output: %w", ferr)
	}
	if err != nil {
		return err
	}

	rt.Logger.Info("stream finished", zap.Int("entries", n))
	return nil
}

func runExport(cmd *cobra.Command, args []string, opts *StreamOptions) error {
	rt := runtimeFrom(cmd)

	as := strings.ToLower(opts.As)
	if !slices.Contains(exportFormats, as) {
		return fmt.Errorf("unknown export format %q (use %s)", opts.As, strings.Join(exportFormats, ", "))
	}

	var dst io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out) // #nosec G304 -- user-provided output path is expected
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		dst = f
	}

	w := bufio.NewWriter(dst)
	ew, err := output.NewEntryWriter(as, w)
	if err != nil {
		return err
	}

	n, err := writeEntries(cmd, args, opts, ew)
	if ferr := w.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("writing export: %w", ferr)
	}
	if err != nil {
		return err
	}

	rt.Logger.Info("export finished",
		zap.String("format", as),
		zap.String("out", opts.Out),
		zap.Int("entries", n))
	return nil
}

// writeEntries streams the matching entries of the resolved files into ew
// and closes it. It returns the number of entries written.
func writeEntries(cmd *cobra.Command, args []string, opts *StreamOptions, ew output.EntryWriter) (int, error) {
	ctx := commandContext(cmd)
	rt := runtimeFrom(cmd)

	if opts.Limit < 0 {
		return 0, fmt.Errorf("--limit must not be negative, got %d", opts.Limit)
	}

	files, err := resolvePaths(args, rt.Config)
	if err != nil {
		return 0, err
	}

	format, err := opts.format(cmd, rt.Config)
	if err != nil {
		return 0, err
	}

	f, err := opts.FilterOptions.build(cmd, rt.Config)
	if err != nil {
		return 0, err
	}

	src, err := openSources(ctx, files, format, f, rt.Logger)
	if err != nil {
		return 0, err
	}

	n := 0
	for entry, err := range parser.All(ctx, src) {
		if err != nil {
			return n, fmt.Errorf("reading log source: %w", err)
		}
		if err := ew.Write(entry); err != nil {
			return n, fmt.Errorf("writing entry: %w", err)
		}
		n++
		if opts.Limit > 0 && n >= opts.Limit {
			break
		}
	}

	if err := ew.Close(); err != nil {
		return n, fmt.Errorf("finishing output: %w", err)
	}
	return n, nil
}

// openSources opens every file, merging them by timestamp when there is more
// than one. Nothing is left open on error.
func openSources(ctx context.Context, files []string, format model.Format, f *filter.Filter, logger *zap.Logger) (parser.LogSource, error) {
	sources := make([]parser.LogSource, 0, len(files))
	for _, path := range files {
		s, err := parser.Open(ctx, path,
			parser.WithFormat(format),
			parser.WithFilter(f),
			parser.WithLogger(logger))
		if err != nil {
			for _, opened := range sources {
				_ = opened.Close()
			}
			return nil, err
		}
		sources = append(sources, s)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return parser.NewMergedSource(sources...), nil
}
