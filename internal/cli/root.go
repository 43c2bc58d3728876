// Package cli implements academiactl, a terminal client for the session core.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/app"
	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/realtime"
	"github.com/spec-kit/academia-portal/internal/tokenstore"
)

// Options customize the command tree. Zero values mean the process defaults.
type Options struct {
	In        io.Reader
	Out       io.Writer
	Err       io.Writer
	Config    *config.Config
	Logger    *zap.Logger
	Store     tokenstore.Store
	Connector realtime.Connector
}

type env struct {
	opts    Options
	verbose bool
	runtime *app.Runtime
	closed  bool
}

// NewRootCommand returns the academiactl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRootCommand(opts)
	return root
}

func newRootCommand(opts Options) (*cobra.Command, *env) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	e := &env{opts: opts}

	root := &cobra.Command{
		Use:           "academiactl",
		Short:         "Sign in to the academic portal and inspect the session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.build(cmd.Context())
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(
		newLoginCommand(e),
		newLogoutCommand(e),
		newStatusCommand(e),
		newAccessCommand(e),
		newWatchCommand(e),
		newNotificationsCommand(e),
	)
	// cobra skips post-run hooks when RunE fails, so every command releases
	// the runtime itself.
	for _, cmd := range root.Commands() {
		if cmd.RunE == nil {
			continue
		}
		run := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer e.close()
			return run(cmd, args)
		}
	}
	return root, e
}

// Execute runs the CLI with process defaults and returns the exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (e *env) close() {
	if e.runtime == nil {
		return
	}
	e.runtime.Close()
	e.runtime = nil
	e.closed = true
}

func (e *env) build(ctx context.Context) error {
	cfg := e.opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger := e.opts.Logger
	if logger == nil {
		if e.verbose {
			cfg.Logger.Level = "debug"
		} else if cfg.Logger.Level == "" || cfg.Logger.Level == "info" {
			cfg.Logger.Level = "warn"
		}
		built, err := observability.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = built
	}

	rt, err := app.Build(ctx, cfg, logger, app.Options{Store: e.opts.Store})
	if err != nil {
		return err
	}
	e.runtime = rt
	return nil
}
