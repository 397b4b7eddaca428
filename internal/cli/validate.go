package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // treat warnings as failures
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Keymap   string                     `json:"keymap"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [keymap]",
		Short: "Check a keymap for errors and unbalanced actions",
		Long: `Validate a CUE keymap directory (or builtin:NAME).

Errors make a table unusable. Warnings flag tables the engine still runs
as written: actions that leave keys down or layers on, end effects that
are not the reverse of begin, and categories that can never fire.

Exit codes:
  0 - Valid (warnings allowed unless --strict)
  1 - Validation errors, or warnings with --strict
  2 - Command error (keymap not found, CUE does not load, etc.)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, keymapArg(rootOpts, args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on warnings")

	return cmd
}

func runValidate(opts *ValidateOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadKeymap(ref)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}
	formatter.VerboseLog("Validating %d dance(s) of %s", len(loaded.Table.Dances), loaded.Table.Name)

	result := ValidationResult{
		Keymap:   loaded.Table.Name,
		Errors:   compiler.Errors(loaded.Findings),
		Warnings: compiler.Warnings(loaded.Findings),
	}
	failing := result.Errors
	if opts.Strict {
		failing = loaded.Findings
	}
	result.Valid = len(failing) == 0

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		return formatter.Failure(failing[0].Code, fmt.Sprintf("validation failed with %d finding(s)", len(failing)), result)
	}

	if !result.Valid {
		return outputFindings(formatter, "✗ Validation failed", failing, ExitFailure)
	}

	fmt.Fprintf(formatter.Writer, "✓ Keymap %s valid\n", result.Keymap)
	if len(result.Warnings) > 0 {
		fmt.Fprintf(formatter.Writer, "\n%d warning(s):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", w.Code, w.Field, w.Message)
		}
	}
	return nil
}

// outputFindings prints findings and returns an ExitError with exitCode.
func outputFindings(formatter *OutputFormatter, header string, findings []compiler.ValidationError, exitCode int) error {
	message := fmt.Sprintf("%d finding(s)", len(findings))
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   findings,
			Error:  &CLIError{Code: findings[0].Code, Message: findings[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(exitCode, message)
	}

	fmt.Fprintln(formatter.Writer, header)
	fmt.Fprintln(formatter.Writer)
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", f.Code, f.Field, f.Message)
	}
	return NewExitError(exitCode, message)
}
