package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	DBOptions
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "session database (default: store.path)")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(formatter, opts.path(opts.RootOptions))
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("listing sessions: %v", err), nil)
	}
	if sessions == nil {
		sessions = []store.SessionInfo{}
	}

	if formatter.JSON() {
		return formatter.Success(sessions)
	}

	w := formatter.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-8s term=%dms settle=%dms inputs=%d entries=%d\n",
			s.ID, s.TableName, s.TappingTermMs, s.SettleMs, s.Inputs, s.Entries)
	}
	return nil
}
