package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/detector"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// diagnoseSampleSize is how many lines of each file are classified.
const diagnoseSampleSize = 50

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common profile and log file issues",
		Long: `Diagnose common profile and log file issues.

This command checks a profile and the files it names for common problems:
- Profile syntax and structure
- Log source file existence and accessibility
- Formats that will not fit the files, or files that mix formats
- Webhook configuration

Example:
  logcat diagnose logcat.yaml
  logcat diagnose -v logcat.yaml  # verbose output, tests webhook reachability`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log sources
	files, logResults := checkLogSources(cfg)
	results = append(results, logResults...)

	// 4. Check each file's format against the profile
	results = append(results, checkFormats(ctx, cfg, files, opts)...)

	// 5. Check webhooks configuration
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'logcat detect --write-config logcat.yaml <log-file>' to generate a starter profile",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'logcat detect --write-config logcat.yaml <log-file>' to generate a starter profile",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Format: %s", cfg.ParsedFormat()),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

// checkLogSources reports on each source pattern and returns the readable
// files they resolve to.
func checkLogSources(cfg *config.Config) ([]string, []DiagnosticResult) {
	results := []DiagnosticResult{}

	if len(cfg.LogSources) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Sources",
			Status:  "warning",
			Message: "No log sources defined",
			Suggests: []string{
				"Pass files on the command line, or add a log_sources section",
				"Example: log_sources:\n  - /var/log/app/*.log",
			},
		})
		return nil, results
	}

	var files []string
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		if isGlobPattern(source) {
			matches, err := parser.ExpandGlobs([]string{source})
			switch {
			case !doublestar.ValidatePathPattern(source):
				result.Status = "error"
				result.Message = "Invalid glob pattern"
			case err != nil:
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot expand glob pattern: %v", err)
			case len(matches) == 1 && matches[0] == source && !fileExists(source):
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax (** matches nested directories)",
				}
			default:
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				files = append(files, matches...)
			}
			results = append(results, result)
			continue
		}

		// Direct file path
		info, err := os.Stat(source)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = "File does not exist"
			result.Suggests = []string{
				"Check if the log file path is correct",
			}
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = "error"
			result.Message = "Path is a directory, not a file"
			result.Suggests = []string{
				"Use a glob pattern to match files in directory",
				"Example: /var/log/app/*.log",
			}
		case info.Size() == 0:
			result.Status = "warning"
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			files = append(files, source)
		}
		results = append(results, result)
	}

	if len(files) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return files, results
}

// checkFormats samples each file and warns when lines will degrade to plain
// text under the format that will be applied.
func checkFormats(ctx context.Context, cfg *config.Config, files []string, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}
	d := detector.New(detector.WithSampleSize(diagnoseSampleSize))

	for _, file := range files {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Format: %s", file),
		}

		sample, err := d.DetectFromFile(ctx, file)
		if err != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			results = append(results, result)
			continue
		}
		if !sample.HasMatch() {
			result.Status = "warning"
			result.Message = "No non-empty lines to sample"
			results = append(results, result)
			continue
		}

		applied := cfg.ParsedFormat()
		if applied == model.FormatAuto {
			stream, err := parser.Open(ctx, file)
			if err != nil {
				result.Status = "warning"
				result.Message = fmt.Sprintf("Cannot open file: %v", err)
				results = append(results, result)
				continue
			}
			applied = stream.Format()
			_ = stream.Close()
		}

		fitting := 0
		for _, m := range sample.Matches {
			if m.Format == applied {
				fitting = m.MatchCount
			}
		}

		switch {
		case fitting == 0:
			result.Status = "error"
			result.Message = fmt.Sprintf("No sampled line is %s; every line will be kept as plain text", applied)
			result.Suggests = []string{
				fmt.Sprintf("The file looks like %s", sample.BestMatch().Format),
				"Use format: auto, or run 'logcat detect --sample 100 " + file + "'",
			}
		case fitting < sample.SampledLines:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d/%d sampled lines are %s; the rest will be kept as plain text",
				fitting, sample.SampledLines, applied)
			for _, m := range sample.Matches {
				if m.Format != applied {
					result.Details = append(result.Details,
						fmt.Sprintf("%s: %s", m.Format, truncate(m.SampleLine, 80)))
				}
			}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("All %d sampled lines are %s", sample.SampledLines, applied)
			if opts.Verbose {
				result.Details = []string{
					"Sample line:",
					truncate(sample.BestMatch().SampleLine, 80),
				}
			}
		}

		results = append(results, result)
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== logcat Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before reading these logs.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nProfile is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nProfile looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// URLs and triggers were already checked by config.Load
	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check:  fmt.Sprintf("Webhook: %s", webhookName(wh)),
			Status: "ok",
		}

		// An empty token after expansion usually means the variable is unset
		if wh.Token == "" {
			result.Message = fmt.Sprintf("Trigger: %s (no token)", wh.Trigger)
		} else {
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(ctx, wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

// isGlobPattern reports whether a source uses glob syntax.
func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
