// Package cli provides the command-line interface for logcat.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ccollicutt/logcat/internal/cli/commands"
	"github.com/ccollicutt/logcat/pkg/config"
)

// Global flag names, also read from LOGCAT_CONFIG, LOGCAT_LOG_LEVEL and
// LOGCAT_NO_COLOR.
const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagNoColor  = "no-color"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCommand()
	executed, err := rootCmd.ExecuteContextC(ctx)
	syncLogger(executed)
	if err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// syncLogger flushes the logger of the command that ran. The error is
// ignored because stderr cannot be synced on every platform.
func syncLogger(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	if rt, ok := commands.RuntimeOf(cmd.Context()); ok && rt.Logger != nil {
		_ = rt.Logger.Sync()
	}
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "logcat",
		Short: "Parse, filter and summarize log files",
		Long: `logcat reads log files of mixed origin and turns each line into a
structured entry with a timestamp, level, message and source.

Supported formats (detected from the first line of each file):
  - JSON lines
  - Apache combined and common access logs
  - Nginx error logs
  - Plain text

Entries can be filtered by level, time range, source, stack trace presence
and a regular expression, then printed, streamed as NDJSON, exported as
JSON, CSV or MessagePack, or summarized as statistics.

Global settings may come from flags or LOGCAT_* environment variables, and
a YAML profile given with --config supplies defaults for every command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(commandContext(cmd), v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(commands.WithRuntime(commandContext(cmd), rt))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "YAML profile supplying defaults")
	flags.String(flagLogLevel, "warn", "Diagnostic log level (debug|info|warn|error)")
	flags.Bool(flagNoColor, false, "Disable colored output")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("LOGCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Add subcommands
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewFilterCommand())
	rootCmd.AddCommand(commands.NewStreamCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// newRuntime resolves the global settings into the logger and profile shared
// by every subcommand.
func newRuntime(ctx context.Context, v *viper.Viper, stderr io.Writer) (*commands.Runtime, error) {
	noColor := v.GetBool(flagNoColor)
	if noColor {
		color.NoColor = true
	}

	logger, err := newLogger(v.GetString(flagLogLevel), stderr, !color.NoColor)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path := v.GetString(flagConfig); path != "" {
		cfg, err = config.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		logger.Debug("loaded profile", zap.String("path", path))
	} else {
		cfg, err = config.FromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	return &commands.Runtime{
		Logger:  logger,
		Config:  cfg,
		NoColor: color.NoColor,
	}, nil
}

// newLogger builds a console logger writing to w at the named level.
func newLogger(level string, w io.Writer, colored bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", level)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if colored {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)

	return zap.New(core), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
