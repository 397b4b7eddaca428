package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/harness"
	"github.com/roach88/tapdance/internal/ir"
	"github.com/roach88/tapdance/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	DB    string // record the run to this database
	Trace bool   // print every trace entry
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <events.yaml>",
		Short: "Run an event script through the engine",
		Long: `Run a scripted sequence of presses, releases and ticks through the
engine and print what it classified and sent to the host.

The script uses the scenario format; only keymap and events are required.
Timing not set in the script comes from engine.tapping_term_ms and
engine.settle_ms. Assertions, if present, are checked.

Examples:
  tapdance simulate burst.yaml
  tapdance simulate burst.yaml --trace
  tapdance simulate burst.yaml --db sessions.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "record the session to this SQLite database")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the full trace")

	return cmd
}

func runSimulate(opts *SimulateOptions, scriptPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Config()

	script, err := harness.LoadScript(scriptPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScript, err.Error(), nil)
	}
	if script.TappingTermMs == nil {
		term := cfg.Engine.TappingTermMs
		script.TappingTermMs = &term
	}
	if script.SettleMs == nil {
		settle := cfg.Engine.SettleMs
		script.SettleMs = &settle
	}

	runOpts := harness.Options{
		Sessions: engine.UUIDv7Generator{},
		Logger:   opts.Logger(),
	}
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer st.Close()
		runOpts.Store = st
	}

	result, err := harness.RunWithOptions(cmd.Context(), script, runOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScript, err.Error(), nil)
	}
	if opts.DB != "" {
		formatter.VerboseLog("Recorded session %s to %s", result.Session.ID, opts.DB)
	}

	if formatter.JSON() {
		if !result.Pass {
			return formatter.Failure("E_ASSERTION", fmt.Sprintf("%d assertion(s) failed", len(result.Errors)), result)
		}
		return formatter.Success(result)
	}

	outputSimulateText(formatter, result, opts.Trace, opts.DB != "")
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

func outputSimulateText(formatter *OutputFormatter, result *harness.Result, trace, recorded bool) {
	w := formatter.Writer
	table := result.Table()
	sess := result.Session

	if recorded {
		fmt.Fprintf(w, "Session %s\n", sess.ID)
	}
	fmt.Fprintf(w, "Keymap %s, tapping term %dms, settle %dms\n\n", sess.TableName, sess.TappingTermMs, sess.SettleMs)

	if trace {
		fmt.Fprint(w, ir.FormatTrace(result.Trace))
		fmt.Fprintln(w)
	} else {
		for _, e := range result.Trace {
			switch e.Kind {
			case ir.TraceClassify:
				fmt.Fprintf(w, "@%-6d %-5s %s\n", e.At, e.DanceName, e.Category)
			case ir.TraceEffect:
				fmt.Fprintf(w, "@%-6d %-5s   %s\n", e.At, e.DanceName, table.FormatEffect(*e.Effect))
			}
		}
		fmt.Fprintln(w)
	}

	keys := make([]string, len(result.Final.Keys))
	for i, k := range result.Final.Keys {
		keys[i] = k.String()
	}
	fmt.Fprintf(w, "Host: keys [%s], layers %s, idle=%t\n",
		strings.Join(keys, ", "), formatLayerMask(table, result.Final.Layers), result.Idle)
	fmt.Fprintf(w, "Stats: %d input(s), %d classified, %d effect(s), %d interrupt(s)\n",
		result.Stats.Inputs, result.Stats.Finalized, result.Stats.Effects, result.Stats.Interrupts)

	if !result.Pass {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✗ Assertions failed")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func formatLayerMask(table *ir.DanceTable, mask uint32) string {
	var names []string
	for l := 0; l < ir.MaxLayers; l++ {
		if mask&(1<<l) != 0 {
			names = append(names, table.LayerName(ir.Layer(l)))
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
