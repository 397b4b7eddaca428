package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const miniKeymap = `package km

name:   "mini"
layers: ["BASE", "NAV"]
dance: ESC: {
	SINGLE_TAP:  tap: "KC_ESC"
	SINGLE_HOLD: layer_hold: "NAV"
}
`

const escTapScript = `
keymap: builtin:sofle
events:
  - {at: 0, press: ESC}
  - {at: 50, release: ESC}
  - {at: 300, tick: true}
  - {at: 310, tick: true}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeKeymap writes a one-file CUE keymap into a fresh directory.
func writeKeymap(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "keymap.cue", src)
	return dir
}

// runRoot executes the full command tree with an isolated config
// directory and returns stdout.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string, data any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
