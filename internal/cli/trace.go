package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/ir"
	"github.com/roach88/tapdance/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	DBOptions
	Kind  string   // only entries of this kind
	Where []string // field=value filters
}

// TraceResult is the JSON payload of the trace command.
type TraceResult struct {
	Session ir.Session      `json:"session"`
	Entries []ir.TraceEntry `json:"entries"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <session-id>",
		Short: "Print a recorded session",
		Long: `Print the trace of a recorded session in seq order: inputs,
classifications, effects and resets.

--where takes field=value and may be repeated; all filters must match.
Fields: kind, dance, category, phase, effect, count, pressed, interrupted.

Examples:
  tapdance trace 0192f0c1-...
  tapdance trace 0192f0c1-... --kind effect
  tapdance trace 0192f0c1-... --where dance=ESC --where category=SINGLE_HOLD
  tapdance trace 0192f0c1-... --db sessions.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "session database (default: store.path)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show entries of this kind (input|classify|effect|reset)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "only show entries matching field=value (repeatable)")

	return cmd
}

func runTrace(opts *TraceOptions, sessionID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	exprs := opts.Where
	if opts.Kind != "" {
		exprs = append([]string{"kind=" + opts.Kind}, exprs...)
	}
	filter, err := store.ParseFilter(exprs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	st, err := openExistingStore(formatter, opts.path(opts.RootOptions))
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return sessionError(formatter, sessionID, err)
	}

	entries, err := st.QueryTrace(ctx, store.TraceQuery{SessionID: sessionID, Filter: filter})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("reading trace: %v", err), nil)
	}

	if formatter.JSON() {
		return formatter.Success(TraceResult{Session: sess, Entries: entries})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Session %s\n", sess.ID)
	fmt.Fprintf(w, "  table %s (%.12s), tapping term %dms, settle %dms\n", sess.TableName, sess.TableHash, sess.TappingTermMs, sess.SettleMs)
	fmt.Fprintf(w, "  engine %s, trace v%s\n\n", sess.EngineVersion, sess.TraceVersion)
	fmt.Fprint(w, ir.FormatTrace(entries))
	return nil
}

// sessionError reports a failed session lookup.
func sessionError(formatter *OutputFormatter, sessionID string, err error) error {
	if errors.Is(err, store.ErrSessionNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("reading session: %v", err), nil)
}
