package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/ir"
	"github.com/roach88/tapdance/internal/keymap"
	"github.com/roach88/tapdance/internal/store"
)

func TestScenarios_Sofle(t *testing.T) {
	files, err := FindScenarios("testdata", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestScenarios_CUEKeymap(t *testing.T) {
	files, err := FindScenarios(filepath.Join("..", "..", "keymaps", "sofle", "scenarios"), "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, "sofle_core", result.Table().Name)
		})
	}
}

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := mustParse(t, `
name: wrong
description: "every assertion is wrong"
keymap: builtin:sofle
events:
  - {at: 0, press: ESC}
  - {at: 250, tick: true}
assertions:
  - type: classified
    categories: [SINGLE_TAP]
  - type: effects
    effects: ["down KC_ESC"]
  - type: effect_count
    count: 3
  - type: balanced
  - type: idle
  - type: layers
    layers: [ILSTR]
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "SINGLE_HOLD")
	assert.Contains(t, result.Errors[1], "layer_on LFTHND")
	assert.Contains(t, result.Errors[2], "1 effects")
	assert.Contains(t, result.Errors[3], "LFTHND")
	assert.Contains(t, result.Errors[4], "idle=false")
	assert.Contains(t, result.Errors[5], "[LFTHND]")
}

func TestRun_CustomTiming(t *testing.T) {
	s := mustParse(t, `
name: short_term
description: "a 100ms term turns a 150ms press into a hold"
keymap: builtin:sofle
tapping_term_ms: 100
settle_ms: 0
events:
  - {at: 0, press: ESC}
  - {at: 150, tick: true}
  - {at: 160, release: ESC}
assertions:
  - type: classified
    categories: [SINGLE_HOLD]
  - type: effects
    effects: ["layer_on LFTHND", "layer_off LFTHND"]
  - type: idle
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, uint32(100), result.Session.TappingTermMs)
	assert.Equal(t, uint32(0), result.Session.SettleMs)
}

func TestRun_CUEKeymap(t *testing.T) {
	dir := t.TempDir()
	kmDir := filepath.Join(dir, "km")
	require.NoError(t, os.MkdirAll(kmDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(kmDir, "km.cue"), []byte(`package km

name:   "mini"
layers: ["BASE", "NAV"]
dance: K: {
	SINGLE_TAP:  tap: "KC_K"
	SINGLE_HOLD: layer_hold: "NAV"
}
`), 0644))

	scenarioPath := filepath.Join(dir, "hold.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: hold
description: "hold K on a CUE keymap"
keymap: km
events:
  - {at: 0, press: K}
  - {at: 300, tick: true}
assertions:
  - type: layers
    layers: [NAV]
  - type: idle
    want: false
`), 0644))

	s, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "mini", result.Table().Name)
}

func TestRun_UnknownKeymap(t *testing.T) {
	s := mustParse(t, `
name: nope
description: "unknown builtin"
keymap: builtin:nope
events:
  - {at: 0, tick: true}
assertions:
  - type: idle
`)
	_, err := Run(s)
	assert.ErrorIs(t, err, keymap.ErrUnknownKeymap)
}

func TestRunWithOptions_RecordsToStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := mustParse(t, `
name: recorded
description: "records into a caller store"
keymap: builtin:sofle
events:
  - {at: 0, press: Q}
  - {after: 20, release: Q}
  - {at: 300, tick: true}
  - {after: 10, tick: true}
assertions:
  - type: effects
    effects: ["down KC_Q", "up KC_Q"]
`)

	result, err := RunWithOptions(ctx, s, Options{
		Store:    st,
		Sessions: engine.NewFixedGenerator("sess-1"),
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "sess-1", result.Session.ID)

	sessions, err := st.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(len(result.Trace)), sessions[0].Entries)
	assert.Equal(t, int64(4), sessions[0].Inputs)
}

func TestExecute_TableOverride(t *testing.T) {
	tiny, _, err := keymap.New("tiny").
		Dance("X").On(ir.SingleTap, keymap.Tap(ir.KC_X)).
		Build()
	require.NoError(t, err)

	s := mustParse(t, `
name: override
description: "runs against a table passed in code"
keymap: builtin:sofle
events:
  - {at: 0, press: X}
  - {at: 10, release: X}
  - {at: 300, tick: true}
assertions:
  - type: classified
    dance: X
    categories: [SINGLE_TAP]
`)

	result, err := Execute(context.Background(), s, Options{Table: tiny})
	require.NoError(t, err)
	assert.Equal(t, []ir.Category{ir.SingleTap}, result.Classified("X"))
	assert.Equal(t, []ir.Effect{ir.KeyDown(ir.KC_X)}, result.Effects())
}

func TestBuildEvents(t *testing.T) {
	table := keymap.Sofle()
	at := func(v uint32) *uint32 { return &v }

	events, err := BuildEvents(table, []Step{
		{At: at(5), Press: "ESC"},
		{After: at(10), Press: "ESC", Pos: "thumb"},
		{Release: "ESC"},
		{After: at(1), Press: "SPC"},
		{At: at(100), Tick: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []ir.InputEvent{
		ir.Press("ESC", 0, 5),
		ir.Press("thumb", 0, 15),
		ir.Release("ESC", 0, 15),
		ir.Press("SPC", ir.NoDance, 16),
		ir.Tick(100),
	}, events)
}

func TestBuildEvents_Macro(t *testing.T) {
	at := func(v uint32) *uint32 { return &v }

	events, err := BuildEvents(keymap.Sofle(), []Step{
		{At: at(0), Press: "FUNC"},
		{After: at(30), Release: "FUNC"},
	})
	require.NoError(t, err)
	assert.Equal(t, []ir.InputEvent{
		ir.PressMacro("FUNC", "FUNC", 0),
		ir.ReleaseMacro("FUNC", "FUNC", 30),
	}, events)
}

func TestBuildEvents_UnknownKey(t *testing.T) {
	_, err := BuildEvents(keymap.Sofle(), []Step{{Press: "NOT_A_KEY"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events[0]")
}

func TestResolveKey(t *testing.T) {
	table := keymap.Sofle()

	id, err := ResolveKey(table, "F")
	require.NoError(t, err)
	assert.Equal(t, ir.DanceKeyID(30), id)

	id, err = ResolveKey(table, "KC_SPC")
	require.NoError(t, err)
	assert.Equal(t, ir.NoDance, id)
}

func TestGoldenTrace_Header(t *testing.T) {
	result := NewResult()
	result.Session = ir.Session{TableName: "t", TappingTermMs: 200, SettleMs: 10}
	result.Trace = []ir.TraceEntry{{Seq: 1, Kind: ir.TraceInput, Input: &ir.InputEvent{Kind: ir.InputTick}}}

	assert.Equal(t,
		"# scenario: s\n# table: t\n# tapping_term_ms: 200 settle_ms: 10\n0001 @0 input tick\n",
		string(GoldenTrace("s", result)))
}
