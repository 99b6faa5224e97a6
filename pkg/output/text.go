package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/logcat/pkg/model"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(ctx, report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "logcat: %s (format: %s)\n", report.Statistics.Summary(), report.DetectedFormat)
	return nil
}

func (f *TextFormatter) formatFull(ctx context.Context, report *Report, w io.Writer) error {
	// Header
	fmt.Fprintln(w, "=== logcat Report ===")
	fmt.Fprintln(w)

	if len(report.Entries) > 0 {
		ew := newTextWriter(w, &writerConfig{color: boolPtr(!f.opts.NoColor)})
		for _, e := range report.Entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := ew.Write(e); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}

	f.formatStatistics(report, w)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Files: %s\n", strings.Join(report.Metadata.Files, ", "))
		fmt.Fprintf(w, "Lines read: %d\n", report.Metadata.LinesRead)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatStatistics(report *Report, w io.Writer) {
	stats := report.Statistics

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %s\n", stats.Summary())
	fmt.Fprintf(w, "Format: %s\n", report.DetectedFormat)

	if stats.TotalEntries == 0 {
		return
	}

	var counts []string
	for _, level := range model.Levels() {
		if n := stats.LevelCounts[level]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s=%d", level, n))
		}
	}
	fmt.Fprintf(w, "Levels: %s\n", strings.Join(counts, " "))

	if stats.TimeRange.Start != nil && stats.TimeRange.End != nil {
		fmt.Fprintf(w, "Time range: %s to %s\n",
			stats.TimeRange.Start.Format(model.DisplayLayout),
			stats.TimeRange.End.Format(model.DisplayLayout))
	}
	if len(stats.Sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(stats.Sources, ", "))
	}
	if stats.DegradedEntries > 0 {
		fmt.Fprintf(w, "Degraded: %d line(s) parsed as plain text\n", stats.DegradedEntries)
	}
	if report.Metadata.Truncated {
		fmt.Fprintf(w, "Note: stopped after %d entries\n", stats.TotalEntries)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
