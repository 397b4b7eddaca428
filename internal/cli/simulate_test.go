package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/harness"
	"github.com/roach88/tapdance/internal/ir"
)

func TestSimulate_Text(t *testing.T) {
	script := writeFile(t, t.TempDir(), "tap.yaml", escTapScript)

	out, err := runRoot(t, "simulate", script)
	require.NoError(t, err)
	assert.Contains(t, out, "Keymap sofle, tapping term 200ms, settle 10ms")
	assert.Contains(t, out, "SINGLE_TAP")
	assert.Contains(t, out, "down KC_ESC")
	assert.Contains(t, out, "up KC_ESC")
	assert.Contains(t, out, "Host: keys [], layers [], idle=true")
	assert.NotContains(t, out, "Session ")
}

func TestSimulate_TraceFlag(t *testing.T) {
	script := writeFile(t, t.TempDir(), "tap.yaml", escTapScript)

	out, err := runRoot(t, "simulate", "--trace", script)
	require.NoError(t, err)
	assert.Contains(t, out, "0001 @0 input press ESC dance=0")
	assert.Contains(t, out, "reset ESC SINGLE_TAP")
}

func TestSimulate_ConfigTiming(t *testing.T) {
	script := writeFile(t, t.TempDir(), "hold.yaml", `
keymap: builtin:sofle
events:
  - {at: 0, press: ESC}
  - {at: 150, tick: true}
`)
	cfg := writeFile(t, t.TempDir(), "config.yaml", "engine:\n  tapping_term_ms: 100\n")

	out, err := runRoot(t, "--config", cfg, "--format", "json", "simulate", script)
	require.NoError(t, err)

	var result harness.Result
	decodeResponse(t, out, &result)
	assert.Equal(t, uint32(100), result.Session.TappingTermMs)
	assert.Equal(t, uint32(1<<2), result.Final.Layers)
	assert.False(t, result.Idle)

	var cats []ir.Category
	for _, e := range result.Trace {
		if e.Kind == ir.TraceClassify {
			cats = append(cats, e.Category)
		}
	}
	assert.Equal(t, []ir.Category{ir.SingleHold}, cats)
}

func TestSimulate_FailedAssertion(t *testing.T) {
	script := writeFile(t, t.TempDir(), "tap.yaml", escTapScript+`
assertions:
  - type: classified
    categories: [DOUBLE_TAP]
`)

	out, err := runRoot(t, "simulate", script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Assertions failed")
}

func TestSimulate_BadScript(t *testing.T) {
	dir := t.TempDir()

	_, err := runRoot(t, "simulate", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	script := writeFile(t, dir, "bad.yaml", "keymap: builtin:sofle\nevents:\n  - {press: NOT_A_KEY}\n")
	_, err = runRoot(t, "simulate", script)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeScript)
}
