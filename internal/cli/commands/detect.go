package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/detector"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect the format of a log file",
		Long: `Report the format logcat would use for a log file.

The format is decided by the first line alone, exactly as parse and stream
decide it. With --sample, the first N lines are classified one by one and
the share of each format is shown, which reveals files that mix formats.

Optionally generates a starter profile with --write-config.

Supports:
  - JSON lines
  - Apache combined and common access logs
  - Nginx error logs
  - Plain text (fallback)

Example:
  logcat detect /var/log/nginx/error.log
  logcat detect --sample 500 /var/log/app.log
  logcat detect -w logcat.yaml /var/log/app.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 0, "Classify this many lines and show the share of each format")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter profile to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	// Opening the stream runs the same first-line detection parse uses
	stream, err := parser.Open(ctx, logFile)
	if err != nil {
		return err
	}
	format := stream.Format()
	_ = stream.Close()

	var sample *detector.DetectionResult
	if opts.SampleSize > 0 {
		d := detector.New(detector.WithSampleSize(opts.SampleSize))
		if sample, err = d.DetectFromFile(ctx, logFile); err != nil {
			return fmt.Errorf("detection failed: %w", err)
		}
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, format, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	if opts.Output == "json" {
		return outputDetectJSON(out, format, sample, logFile)
	}
	return outputDetectText(out, format, sample, logFile)
}

func outputDetectText(w io.Writer, format model.Format, sample *detector.DetectionResult, logFile string) error {
	fmt.Fprintln(w, "=== Log Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Detected Format: %s\n", format)
	fmt.Fprintln(w)

	if sample == nil {
		return nil
	}

	fmt.Fprintf(w, "Lines sampled: %d\n", sample.SampledLines)
	if !sample.HasMatch() {
		fmt.Fprintln(w, "No non-empty lines to sample.")
		return nil
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Formats in sample ---")
	for i, m := range sample.Matches {
		fmt.Fprintf(w, "%d. %s (%.1f%%, %d lines)\n", i+1, m.Format, m.Confidence*100, m.MatchCount)
		fmt.Fprintf(w, "   sample: %s\n", truncate(m.SampleLine, 100))
	}
	fmt.Fprintln(w)

	if sample.Mixed() {
		fmt.Fprintf(w, "WARNING: The file mixes formats. Every line is parsed as %s;\n", format)
		fmt.Fprintln(w, "lines in other formats will be kept as plain text.")
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format share in JSON output.
type JSONMatch struct {
	Format     string  `json:"format"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Format       string      `json:"format"`
	SampledLines int         `json:"sampled_lines,omitempty"`
	Matches      []JSONMatch `json:"matches,omitempty"`
	Mixed        bool        `json:"mixed,omitempty"`
}

func outputDetectJSON(w io.Writer, format model.Format, sample *detector.DetectionResult, logFile string) error {
	output := JSONOutput{
		File:   logFile,
		Format: format.String(),
	}

	if sample != nil {
		output.SampledLines = sample.SampledLines
		output.Mixed = sample.Mixed()
		for _, m := range sample.Matches {
			output.Matches = append(output.Matches, JSONMatch{
				Format:     m.Format.String(),
				Confidence: m.Confidence,
				MatchCount: m.MatchCount,
				SampleLine: m.SampleLine,
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeStarterConfig generates a starter profile with the detected format.
func writeStarterConfig(w io.Writer, format model.Format, logFile, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	content := generateStarterConfig(logFile, format)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML profile template.
func generateStarterConfig(logFile string, format model.Format) string {
	// Get absolute path for log file if possible
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	return fmt.Sprintf(`# logcat profile
# Generated by: logcat detect
# Detected format: %s

log_sources:
  - %s
  # Add more log files or use globs:
  # - /var/log/myapp/**/*.log

# auto detects the format of each file from its first line
format: %s
max_entries: %d
output: %s

filter:
  # levels: [ERROR, FATAL]
  # search_pattern: 'timed? out'
  # since: "2024-01-15T00:00:00Z"
  # until: "2024-01-16T00:00:00Z"
  # source: api
  # has_stack_trace: "yes"

# webhooks:
#   - name: alerts
#     url: https://hooks.example.com/logcat
#     token: ${LOGCAT_WEBHOOK_TOKEN}
#     trigger: on_errors
`, format, absLogFile, format, config.DefaultMaxEntries, config.DefaultOutput)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
