package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/keymap"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DBOptions
	Keymap string
}

// ReplayOutput is the JSON payload of the replay command.
type ReplayOutput struct {
	SessionID string `json:"session_id"`
	Keymap    string `json:"keymap"`
	Inputs    int    `json:"inputs"`
	Entries   int    `json:"entries"`
	Match     bool   `json:"match"`

	// Set when Match is false.
	Seq      int64  `json:"seq,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Re-run a recorded session and compare traces",
		Long: `Re-run the recorded inputs of a session through a fresh engine and
compare every classification, effect and reset with the recording.

The keymap must hash to the table the session was recorded with. Without
--keymap, a built-in table of the recorded name is used, then the
configured keymap.

Exit codes:
  0 - Replay matches the recording
  1 - Replay diverged
  2 - Command error (session not found, keymap mismatch, etc.)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "session database (default: store.path)")
	cmd.Flags().StringVar(&opts.Keymap, "keymap", "", "keymap directory or builtin:NAME")

	return cmd
}

func runReplay(opts *ReplayOptions, sessionID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	st, err := openExistingStore(formatter, opts.path(opts.RootOptions))
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return sessionError(formatter, sessionID, err)
	}

	ref := opts.Keymap
	if ref == "" {
		if _, err := keymap.Builtin(sess.TableName); err == nil {
			ref = keymap.BuiltinPrefix + sess.TableName
		} else {
			ref = opts.Config().KeymapRef()
		}
	}
	loaded, err := LoadKeymap(ref)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}
	formatter.VerboseLog("Replaying session %s against %s", sessionID, ref)

	result, err := engine.Replay(ctx, st, sessionID, loaded.Table, engine.WithLogger(opts.Logger()))
	if err != nil {
		var ce *engine.ConfigError
		if errors.As(err, &ce) {
			return formatter.Fail(ExitCommandError, string(ce.Code), ce.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	out := ReplayOutput{
		SessionID: sessionID,
		Keymap:    loaded.Table.Name,
		Inputs:    result.Inputs,
		Entries:   len(result.Expected),
		Match:     result.Match(),
	}
	if m := result.Mismatch; m != nil {
		out.Seq = m.Seq
		out.Expected = m.Expected
		out.Actual = m.Actual
	}

	if formatter.JSON() {
		if !out.Match {
			return formatter.Failure("E_REPLAY_DIVERGED", result.Err().Error(), out)
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	if !out.Match {
		fmt.Fprintf(w, "✗ Replay of %s diverged at seq %d\n", sessionID, out.Seq)
		fmt.Fprintf(w, "  expected: %s\n", out.Expected)
		fmt.Fprintf(w, "  actual:   %s\n", out.Actual)
		return NewExitError(ExitFailure, result.Err().Error())
	}
	fmt.Fprintf(w, "✓ Replay of %s matches (%d input(s), %d entries)\n", sessionID, out.Inputs, out.Entries)
	return nil
}
