package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/junction/internal/harness"
	"github.com/roach88/junction/internal/junction"
	"github.com/roach88/junction/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	StepTimeoutMs int

	// IDGenerator overrides the junction id (for testing).
	// If nil, journaled runs get a UUIDv7 and others are named after the scenario.
	IDGenerator junction.IDGenerator
}

// RunOutput is the payload of a run.
type RunOutput struct {
	Scenario string          `json:"scenario"`
	Database string          `json:"database,omitempty"`
	Result   *harness.Result `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario",
		Long: `Run a scenario file on a fresh junction and check its expectations.

With --db (or store.path in the config) every firing is journaled to a
SQLite database and the run gets a unique junction id, which trace can
later look up.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed or did not validate
  2 - Command error (missing file, unusable database, etc.)

Examples:
  junction run ./scenarios/sum_pair.yaml
  junction run ./scenarios/cell.cue --db ./journal.db
  junction run ./scenarios/cell.cue --step-timeout-ms 200 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal firings to this SQLite database")
	cmd.Flags().IntVar(&opts.StepTimeoutMs, "step-timeout-ms", 5000, "bound on every blocking step")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger()
	cfg := opts.cfg()

	// Flags were bound into the config by the root; fall back to the flag
	// values when the command runs on its own.
	database := cfg.Store.Path
	timeout := cfg.Scenario.StepTimeout()
	if opts.Config == nil {
		database = opts.Database
		timeout = time.Duration(opts.StepTimeoutMs) * time.Millisecond
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenario not found: %s", path), nil)
	}

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return f.Fail(ExitFailure, loadErrorCode(err), "failed to load scenario", err)
	}
	f.VerboseLog("loaded scenario %s (%d channels, %d patterns, %d steps)",
		sc.Name, len(sc.Channels), len(sc.Patterns), len(sc.Steps))

	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithStepTimeout(timeout),
	}

	var journal *junction.AsyncRecorder
	if database != "" {
		logger.Info("opening journal", "path", database)
		st, err := store.Open(database)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		journal = junction.NewAsyncRecorder(context.Background(), st)
		runOpts = append(runOpts, harness.WithRecorder(journal))
		if opts.IDGenerator == nil {
			runOpts = append(runOpts, harness.WithIDGenerator(junction.UUIDv7Generator{}))
		}
	}
	if opts.IDGenerator != nil {
		runOpts = append(runOpts, harness.WithIDGenerator(opts.IDGenerator))
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := harness.Run(ctx, sc, runOpts...)
	if journal != nil {
		// Run has stopped the junction, so every firing is queued.
		if closeErr := journal.Close(); closeErr != nil {
			return f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to journal firings", closeErr)
		}
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRunFailed, "scenario run aborted", err)
	}

	out := RunOutput{Scenario: sc.Name, Database: database, Result: result}
	if f.JSON() {
		if err := f.Respond(result.Pass, out); err != nil {
			return err
		}
	} else {
		writeRunText(f.Writer, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", sc.Name))
	}
	return nil
}

// signalContext derives a context from the command that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeRunText(w io.Writer, out RunOutput) {
	r := out.Result
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (junction %s)\n", mark, out.Scenario, r.Junction)

	for _, ev := range r.Firings {
		fmt.Fprintf(w, "  fire #%d %s on %s  %v = %v\n", ev.Seq, ev.Pattern, ev.Trigger, ev.Channels, ev.Args)
	}
	for _, name := range sortedNames(r.Pending) {
		fmt.Fprintf(w, "  pending %s: %d\n", name, r.Pending[name])
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if out.Database != "" {
		fmt.Fprintf(w, "Journaled %d firings to %s\n", len(r.Firings), out.Database)
	}
}
