package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoCodeAlone/appkit"
	"github.com/GoCodeAlone/appkit/config"
	"github.com/GoCodeAlone/appkit/logging"
	"github.com/GoCodeAlone/appkit/scheduler"
	"github.com/GoCodeAlone/appkit/status"
	"github.com/spf13/cobra"
)

var ErrUnsupportedConfigFormat = errors.New("unsupported config file format")

// RunOptions holds the run command flags.
type RunOptions struct {
	ConfigFile string
	EnvPrefix  string
	StatusAddr string
	LogLevel   string
	Watch      bool
	Once       bool
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	opts := RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo application",
		Long: `Run builds the demo application, registers the bundled extensions and
drives it through its lifecycle. It runs until interrupted unless --once
is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (yaml, toml or json)")
	cmd.Flags().StringVar(&opts.EnvPrefix, "env-prefix", "APPKIT", "Prefix for environment overrides; empty disables them")
	cmd.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "Address for the status server; empty disables it")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Log a warning when the configuration file changes")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Return from the run phase immediately")

	return cmd
}

// Run builds the demo application and drives it to completion.
func Run(ctx context.Context, opts RunOptions) error {
	logger, err := logging.New(opts.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bp, err := newDemoApp(opts)
	if err != nil {
		return err
	}
	app, err := appkit.InstanceOf(bp, appkit.WithLogger(logger))
	if err != nil {
		return err
	}
	return runApp(ctx, app)
}

// runApp drives app through Main. Shutdown does not run when the lifecycle
// aborts, so extensions that hold resources are released here.
func runApp(ctx context.Context, app *appkit.Application) error {
	err := app.Main(ctx)
	if err != nil {
		releaseExtensions(context.WithoutCancel(ctx), app)
	}
	return err
}

// releaseExtensions closes extensions in reverse registration order.
func releaseExtensions(ctx context.Context, app *appkit.Application) {
	exts := app.Extensions()
	for i := len(exts) - 1; i >= 0; i-- {
		var err error
		switch ext := exts[i].(type) {
		case *status.Server:
			err = ext.Close(ctx)
		case *scheduler.Scheduler:
			err = ext.Stop(ctx)
		case *config.Extension:
			err = ext.Close()
		default:
			continue
		}
		if err != nil {
			app.Logger().Warn("Failed to release extension", "app", app.Name(), "extension", exts[i].Name(), "error", err)
		}
	}
}
