package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/junction/internal/junction"
	"github.com/roach88/junction/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Junction string // optional - show the firings of one junction
}

// TraceResult holds the firings of one junction.
type TraceResult struct {
	Junction string                  `json:"junction"`
	Firings  []junction.FiringRecord `json:"firings"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the firing journal",
		Long: `Query a firing journal written by run --db.

Without --junction, lists every journaled junction with its firing count
and seq range. With --junction, lists that junction's firings in seq order.

Examples:
  junction trace --db ./journal.db
  junction trace --db ./journal.db --junction 0192f7c4-...
  junction trace --db ./journal.db --junction 0192f7c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Junction, "junction", "", "junction id to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	database := opts.Database
	if database == "" && opts.Config != nil {
		database = opts.Config.Store.Path
	}
	if database == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no database given (use --db or store.path)", nil)
	}
	// Opening would create an empty journal; a missing file is a typo.
	if _, err := os.Stat(database); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", database), nil)
	}

	st, err := store.Open(database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
	}
	defer st.Close()

	if opts.Junction == "" {
		summaries, err := st.ListJunctions(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to list junctions", err)
		}
		if f.JSON() {
			return f.Respond(true, summaries)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(f.Writer, "No firings journaled.")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(f.Writer, "%s  firings=%d  seq=%d..%d\n", s.ID, s.Firings, s.FirstSeq, s.LastSeq)
		}
		return nil
	}

	records, err := st.ReadFirings(ctx, junction.JunctionID(opts.Junction))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read firings", err)
	}
	if len(records) == 0 {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no firings for junction %s", opts.Junction), nil)
	}

	if f.JSON() {
		return f.Respond(true, TraceResult{Junction: opts.Junction, Firings: records})
	}

	fmt.Fprintf(f.Writer, "Junction %s: %d firings\n", opts.Junction, len(records))
	for _, rec := range records {
		fmt.Fprintf(f.Writer, "  #%d pattern=%d trigger=%d channels=%v args=%q\n",
			rec.Seq, rec.Pattern, rec.Trigger, rec.Channels, rec.Args)
	}
	return nil
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
