package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/config"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Runtime carries the settings the root command resolves before any
// subcommand runs.
type Runtime struct {
	Logger  *zap.Logger
	Config  *config.Config // Profile or environment defaults, validated
	NoColor bool
}

type runtimeKey struct{}

// WithRuntime attaches a Runtime to a context.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeOf returns the Runtime attached to ctx, if any.
func RuntimeOf(ctx context.Context) (*Runtime, bool) {
	if ctx == nil {
		return nil, false
	}
	rt, ok := ctx.Value(runtimeKey{}).(*Runtime)
	return rt, ok && rt != nil
}

// runtimeFrom returns the Runtime attached to the command's context. Commands
// executed on their own, as in tests, get a no-op logger and default config.
func runtimeFrom(cmd *cobra.Command) *Runtime {
	if rt, ok := RuntimeOf(cmd.Context()); ok {
		return rt
	}

	return &Runtime{
		Logger: zap.NewNop(),
		Config: config.Defaults(),
	}
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
