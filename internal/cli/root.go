package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/junction/internal/config"
)

// RootOptions holds global flags and the loaded configuration for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	Viper  *viper.Viper
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the junction CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "junction",
		Short: "junction - Join Calculus runner",
		Long: `Run declarative Join Calculus scenarios.

A scenario declares channels, join patterns over them and the steps that
drive the channels. junction runs it on a fresh junction, checks the
expectations and can journal every firing to SQLite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default is $HOME/.config/junction/config.yaml)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// loadConfig reads defaults, the config file and JUNCTION_* variables, then
// binds the flags of the running command so they take precedence.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	v := config.New(o.ConfigFile)
	if err := config.Read(v, o.ConfigFile != ""); err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	for key, flag := range map[string]string{
		"store.path":               "db",
		"scenario.step_timeout_ms": "step-timeout-ms",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return WrapExitError(ExitCommandError, "failed to bind flag "+flag, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	o.Viper = v
	o.Config = cfg
	o.Logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	return nil
}

// cfg returns the loaded configuration, or defaults when a command runs
// without the root (as in tests that execute a subcommand directly).
func (o *RootOptions) cfg() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return o.cfg().Log.NewLogger(io.Discard)
	}
	return o.Logger
}
