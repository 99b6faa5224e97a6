package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration profile",
		Long: `Validate a logcat configuration profile without reading any logs.

Checks:
  - YAML syntax
  - Field ranges (max_entries, output, has_stack_trace)
  - Format name
  - Filter levels, search pattern and time bounds
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Log sources: %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(out, "  Format:      %s\n", cfg.ParsedFormat())
	fmt.Fprintf(out, "  Max entries: %d\n", cfg.MaxEntries)
	fmt.Fprintf(out, "  Output:      %s\n", cfg.Output)
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	if criteria := describeFilter(cfg.Filter); len(criteria) > 0 {
		fmt.Fprintf(out, "\nFilter:\n")
		for _, c := range criteria {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}

	if len(cfg.LogSources) == 0 {
		return nil
	}

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	fmt.Fprintf(out, "\nLog files matched: %d\n", len(files))
	for _, f := range files {
		if fileExists(f) {
			fmt.Fprintf(out, "  - %s\n", f)
		} else {
			fmt.Fprintf(out, "  - %s (warning: not found)\n", f)
		}
	}

	return nil
}

// describeFilter lists the criteria set in a filter section.
func describeFilter(fc config.FilterConfig) []string {
	var criteria []string
	if len(fc.Levels) > 0 {
		criteria = append(criteria, "levels: "+strings.Join(fc.Levels, ", "))
	}
	if fc.SearchPattern != "" {
		criteria = append(criteria, "search: "+fc.SearchPattern)
	}
	if fc.Since != "" {
		criteria = append(criteria, "since: "+fc.Since)
	}
	if fc.Until != "" {
		criteria = append(criteria, "until: "+fc.Until)
	}
	if fc.Source != "" {
		criteria = append(criteria, "source: "+fc.Source)
	}
	if fc.HasStackTrace != "" && fc.HasStackTrace != "any" {
		criteria = append(criteria, "stack trace: "+fc.HasStackTrace)
	}
	return criteria
}
