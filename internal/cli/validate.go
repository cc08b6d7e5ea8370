package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/junction/internal/harness"
)

// ValidationResult holds the validation outcome of one scenario file.
type ValidationResult struct {
	Path   string                    `json:"path"`
	Name   string                    `json:"name,omitempty"`
	Valid  bool                      `json:"valid"`
	Errors []harness.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenarios without running them",
		Long: `Load and validate scenario files without running them.

Checks the file decodes (YAML or CUE), required fields are present, every
referenced channel, pattern and reaction exists, and every step fits the
kind of its channel.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		res := validateFile(path)
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}

	if f.JSON() {
		if err := f.Respond(invalid == 0, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Valid {
				fmt.Fprintf(f.Writer, "✓ %s (%s)\n", res.Path, res.Name)
				continue
			}
			fmt.Fprintf(f.Writer, "✗ %s\n", res.Path)
			for _, e := range res.Errors {
				fmt.Fprintf(f.Writer, "  %s\n", e.Error())
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios invalid", invalid, len(paths)))
	}
	return nil
}

func validateFile(path string) ValidationResult {
	sc, err := harness.LoadScenario(path)
	if err == nil {
		return ValidationResult{Path: path, Name: sc.Name, Valid: true}
	}

	var ves harness.ValidationErrors
	if errors.As(err, &ves) {
		return ValidationResult{Path: path, Errors: ves}
	}
	return ValidationResult{
		Path:   path,
		Errors: []harness.ValidationError{{Field: "file", Message: err.Error()}},
	}
}

// loadErrorCode maps a LoadScenario error to a CLI error code.
func loadErrorCode(err error) string {
	var ves harness.ValidationErrors
	if errors.As(err, &ves) {
		return ErrCodeInvalid
	}
	return ErrCodeLoadFailed
}
