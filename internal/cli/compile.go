package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/compiler"
	"github.com/roach88/tapdance/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Table    *ir.DanceTable             `json:"table"`
	Hash     string                     `json:"hash"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [keymap]",
		Short: "Compile a CUE keymap to a dance table",
		Long: `Compile a CUE keymap directory (or builtin:NAME) to a dance table.

The table is validated; errors fail the compile, warnings are reported
alongside the result. Without an argument the configured keymap is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, keymapArg(rootOpts, args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the table as JSON to this file")

	return cmd
}

// keymapArg returns the keymap named on the command line, or the
// configured one.
func keymapArg(opts *RootOptions, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return opts.Config().KeymapRef()
}

func runCompile(opts *CompileOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadKeymap(ref)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}
	if loaded.FileCount > 0 {
		formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, ref)
	}

	if compiler.HasErrors(loaded.Findings) {
		return outputFindings(formatter, "✗ Compilation failed", compiler.Errors(loaded.Findings), ExitCommandError)
	}

	result := CompilationResult{
		Table:    loaded.Table,
		Hash:     loaded.Hash,
		Warnings: compiler.Warnings(loaded.Findings),
	}

	if opts.Output != "" {
		if err := writeTableFile(loaded.Table, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	opts.Logger().Debug("keymap compiled", "keymap", loaded.Table.Name, "dances", len(loaded.Table.Dances), "hash", loaded.Hash)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputCompileText(formatter, result, opts.Output)
}

func outputCompileText(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	w := formatter.Writer
	t := result.Table

	fmt.Fprintf(w, "✓ Compiled keymap %s: %d dance(s), %d layer(s)\n", t.Name, len(t.Dances), len(t.Layers))
	fmt.Fprintf(w, "  hash: %s\n\n", result.Hash)

	fmt.Fprintln(w, "Dances:")
	for _, d := range t.Dances {
		cats := d.Categories()
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = c.String()
		}
		fmt.Fprintf(w, "  %-5s %s\n", d.Name, strings.Join(names, ", "))
	}
	if len(t.Macros) > 0 {
		fmt.Fprintln(w, "Macros:")
		for _, m := range t.Macros {
			fmt.Fprintf(w, "  %-6s %s\n", m.Name, ir.FormatEffects(m.Action.Begin))
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d warning(s)", len(result.Warnings))
		if !formatter.Verbose {
			fmt.Fprintln(w, " (run validate for details)")
		} else {
			fmt.Fprintln(w, ":")
			for _, f := range result.Warnings {
				fmt.Fprintf(w, "  %s\n", f)
			}
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote table to %s\n", outputFile)
	}
	return nil
}

// writeTableFile writes the table as indented JSON. Canonical JSON is only
// used for hashing.
func writeTableFile(table *ir.DanceTable, filename string) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling table: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
