package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the clover CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "clover",
		Short: "clover - vendor sales commission engine",
		Long: `Loads normalized vendor sales files into per vendor tables, harmonises them
into one commission ledger and reconciles each sales rep's tier 2 start date.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRebuildCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPeriodsCommand(opts))

	return cmd
}

// loadConfig reads configuration and builds the logger. Verbose forces debug
// logs; otherwise CLI commands only log warnings so output stays readable.
func loadConfig(opts *RootOptions, quiet bool) (*config.Config, ectologger.Logger, func(), error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.LogLevel
	switch {
	case opts.Verbose:
		level = "debug"
	case quiet:
		level = "warn"
	}

	logger, sync, err := logging.New(logging.Config{
		Level:   level,
		Pretty:  cfg.PrettyLogs,
		AppName: cfg.AppName,
		Version: cfg.Version,
	})
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	return cfg, logger, sync, nil
}

// startApp loads configuration and starts the service dependencies for a
// one-shot command. The returned stop function releases everything.
func startApp(ctx context.Context, opts *RootOptions, appOpts app.Options) (*app.App, func(), error) {
	cfg, logger, sync, err := loadConfig(opts, true)
	if err != nil {
		return nil, nil, err
	}

	a := app.New(cfg, logger)
	if err := a.Start(ctx, appOpts); err != nil {
		_ = a.Stop(context.WithoutCancel(ctx))
		sync()
		return nil, nil, WrapExitError(ExitCommandError, "failed to start", err)
	}

	stop := func() {
		if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Failed to stop cleanly")
		}
		sync()
	}
	return a, stop, nil
}
