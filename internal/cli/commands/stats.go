package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/analyzer"
	"github.com/ccollicutt/logcat/pkg/config"
	"github.com/ccollicutt/logcat/pkg/output"
	"github.com/ccollicutt/logcat/pkg/webhook"
)

// StatsOptions holds command-line options for the stats command.
type StatsOptions struct {
	SourceOptions
	FilterOptions

	Output       string
	Verbose      bool
	FailOnErrors bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	opts := &StatsOptions{}

	cmd := &cobra.Command{
		Use:   "stats [log-file...]",
		Short: "Summarize log files without printing entries",
		Long: `Read every entry of the given log files and print statistics only:
counts per level, the time range covered, distinct sources and the share of
ERROR and FATAL entries.

The report can also be posted to webhooks, from the --config profile or
--webhook-url. By default a webhook fires only when errors were found.

Exit codes:
  0 - Success
  1 - Errors found (only with --fail-on-errors)
  2 - Configuration or runtime error

Example:
  logcat stats /var/log/app.log
  logcat stats -o json 'logs/*.log'
  logcat stats --fail-on-errors --webhook-url https://hooks.example.com/logs app.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args, opts)
		},
	}

	opts.SourceOptions.register(cmd, false)
	opts.FilterOptions.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show files read and timing")
	cmd.Flags().BoolVar(&opts.FailOnErrors, "fail-on-errors", false, "Exit 1 when ERROR or FATAL entries are found")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnErrors),
		"When to fire webhook (on_errors|always|never)")

	return cmd
}

func runStats(cmd *cobra.Command, args []string, opts *StatsOptions) error {
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

	f, err := opts.FilterOptions.build(cmd, rt.Config)
	if err != nil {
		return err
	}

	webhooks, err := collectWebhooks(rt.Config, opts)
	if err != nil {
		return err
	}

	// No entries are kept, so text shows the statistics section alone and
	// JSON is reduced to the statistics object.
	outputName := outputFormat(cmd, opts.Output, rt.Config)
	formatter, err := createFormatter(outputName, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   outputName == "json",
		NoColor: rt.NoColor,
	})
	if err != nil {
		return err
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithFormat(format),
		analyzer.WithFilter(f),
		analyzer.WithMaxEntries(0),
		analyzer.WithStatisticsOnly(),
		analyzer.WithLogger(rt.Logger),
	)

	result, err := a.Analyze(ctx, files)
	if err != nil {
		return err
	}

	report := output.NewReport(result)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged but don't fail the command
	sendWebhooks(ctx, rt.Logger, webhooks, report)

	if opts.FailOnErrors && report.HasErrors() {
		ExitCode = 1
	}

	return nil
}

// sendWebhooks posts the report to every webhook whose trigger fires.
func sendWebhooks(ctx context.Context, logger *zap.Logger, webhooks []config.WebhookConfig, report *output.Report) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient(webhook.WithLogger(logger))

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasErrors()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			logger.Info("webhook sent",
				zap.String("webhook", name),
				zap.String("run_id", resp.RunID),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", resp.Duration))
		} else {
			logger.Warn("webhook failed",
				zap.String("webhook", name),
				zap.String("run_id", resp.RunID),
				zap.Error(resp.Error))
		}
	}
}

// collectWebhooks merges profile webhooks with the one given on the command line.
func collectWebhooks(cfg *config.Config, opts *StatsOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		switch wh.Trigger {
		case "", config.WebhookTriggerOnErrors, config.WebhookTriggerAlways, config.WebhookTriggerNever:
		default:
			return nil, fmt.Errorf("unknown webhook trigger %q (use on_errors, always or never)", opts.WebhookTrigger)
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("--webhook-url: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

// shouldFireWebhook determines if a webhook should fire based on trigger and errors.
func shouldFireWebhook(trigger config.WebhookTrigger, hasErrors bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasErrors
	}
}
