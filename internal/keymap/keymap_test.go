package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/compiler"
	"github.com/roach88/tapdance/internal/host"
	"github.com/roach88/tapdance/internal/ir"
)

func TestBuilder(t *testing.T) {
	table, warnings, err := New("mini").
		Layers("BASE", "NAV").
		Dance("ESC").On(ir.SingleTap, Tap(ir.KC_ESC)).On(ir.SingleHold, LayerHold(1)).
		Dance("A").On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_A)).
		Build()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "mini", table.Name)
	require.Len(t, table.Dances, 2)
	assert.Equal(t, ir.DanceKeyID(1), table.Dances[1].ID)
	assert.Equal(t, []ir.Effect{ir.KeyUp(ir.KC_A), ir.KeyUp(ir.KC_LCTL)}, table.Dances[1].Actions[ir.DoubleTap].End)
}

func TestBuilder_ValidationError(t *testing.T) {
	_, findings, err := New("bad").
		Dance("X").On(ir.SingleTap, Tap(ir.KC_NO)).
		Dance("X").On(ir.SingleTap, Tap(ir.KC_A)).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), compiler.ErrInvalidKeycode)
	assert.Contains(t, err.Error(), compiler.ErrDuplicateDance)
	assert.True(t, compiler.HasErrors(findings))

	assert.Panics(t, func() { New("empty").MustBuild() })
}

func TestBuilder_TablesAreIndependent(t *testing.T) {
	b := New("x").Dance("A").On(ir.SingleTap, Tap(ir.KC_A))
	first := b.parent.MustBuild()
	b.On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_A))
	second := b.parent.MustBuild()

	assert.Len(t, first.Dances[0].Actions, 1)
	assert.Len(t, second.Dances[0].Actions, 2)
}

func TestBuilder_Macros(t *testing.T) {
	b := New("m").Layers("BASE", "NAV").Macro("NAV", LayerHold(1))
	b.Dance("A").On(ir.SingleTap, Tap(ir.KC_A))
	table := b.MustBuild()

	require.Len(t, table.Macros, 1)
	m, ok := table.MacroByName("NAV")
	require.True(t, ok)
	assert.Equal(t, LayerHold(1), m.Action)

	_, _, err := New("clash").
		Macro("A", Tap(ir.KC_B)).
		Dance("A").On(ir.SingleTap, Tap(ir.KC_A)).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), compiler.ErrDuplicateMacro)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, ir.Action{
		Begin: []ir.Effect{ir.LayerOff(1), ir.LayerOn(0)},
	}, LayerMove(1, 0))
	assert.Equal(t, []ir.Effect{ir.KeyUp(ir.KC_LCTL), ir.KeyUp(ir.KC_LALT)},
		pressOrder(ir.KC_LCTL, ir.KC_LALT).End)
}

func TestSofle_Shape(t *testing.T) {
	table := Sofle()

	assert.Equal(t, "sofle", table.Name)
	assert.Equal(t, []string{"QWERTY", "ILSTR", "LFTHND", "FUNCPAD"}, table.Layers)
	require.Len(t, table.Dances, 49)

	for i, d := range table.Dances {
		assert.Equal(t, ir.DanceKeyID(i), d.ID)
		kc, err := ir.ParseKeycode(d.Name)
		require.NoError(t, err, "dance %s", d.Name)
		assert.Equal(t, Tap(kc), d.Actions[ir.SingleTap], "every dance taps its own key")
	}

	first, last := table.Dances[0], table.Dances[48]
	assert.Equal(t, "ESC", first.Name)
	assert.Equal(t, "Z", last.Name)

	f5, ok := table.ByName("F5")
	require.True(t, ok)
	assert.Equal(t, Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_F5), f5.Actions[ir.TripleTap])

	ent, _ := table.ByName("ENT")
	assert.Equal(t, LayerHold(Funcpad), ent.Actions[ir.SingleHold])
}

func TestSofle_KnownDefectsAreWarnings(t *testing.T) {
	findings := compiler.Validate(Sofle())
	require.False(t, compiler.HasErrors(findings))

	type finding struct{ field, code string }
	var got []finding
	for _, f := range findings {
		got = append(got, finding{f.Field, f.Code})
	}
	assert.Equal(t, []finding{
		{"dance.ESC.DOUBLE_TAP", compiler.WarnLayersChanged},
		{"dance.RBRC.DOUBLE_TAP", compiler.WarnNotReverseOrder},
		{"dance.RBRC.DOUBLE_HOLD", compiler.WarnNotReverseOrder},
		{"dance.0.DOUBLE_HOLD", compiler.WarnNotReverseOrder},
		{"dance.2.DOUBLE_HOLD", compiler.WarnNotReverseOrder},
		{"dance.I.SINGLE_HOLD", compiler.WarnLayersChanged},
		{"dance.Y.DOUBLE_TAP", compiler.WarnNotReverseOrder},
	}, got)
}

func TestSofle_Macros(t *testing.T) {
	table := Sofle()
	names := make([]string, len(table.Macros))
	for i, m := range table.Macros {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"LAYER", "ARTBRD", "FUNC"}, names)

	layer, _ := table.MacroByName("LAYER")
	assert.Equal(t, []ir.Effect{ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_LSFT), ir.KeyDown(ir.KC_LBRC)}, layer.Action.Begin)
	assert.Equal(t, []ir.Effect{ir.KeyUp(ir.KC_LBRC), ir.KeyUp(ir.KC_LSFT), ir.KeyUp(ir.KC_LCTL)}, layer.Action.End)

	artbrd, _ := table.MacroByName("ARTBRD")
	assert.Equal(t, Chord(ir.KC_LCTL, ir.KC_0), artbrd.Action)

	fn, _ := table.MacroByName("FUNC")
	assert.Equal(t, LayerHold(Funcpad), fn.Action)
}

func TestSofle_YDoubleTapRunsTripleChord(t *testing.T) {
	y, ok := Sofle().ByName("Y")
	require.True(t, ok)
	assert.Equal(t, []ir.Effect{
		ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_Y),
		ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_LALT), ir.KeyDown(ir.KC_LSFT), ir.KeyDown(ir.KC_Y),
	}, y.Actions[ir.DoubleTap].Begin)
}

// Every entry without a W201/W202 finding must leave the host as it found it.
func TestSofle_StackBalance(t *testing.T) {
	table := Sofle()
	unbalanced := make(map[string]bool)
	for _, f := range compiler.Validate(table) {
		if f.Code == compiler.WarnKeysLeftDown || f.Code == compiler.WarnLayersChanged {
			unbalanced[f.Field] = true
		}
	}

	checked := 0
	for _, d := range table.Dances {
		for _, c := range d.Categories() {
			field := "dance." + d.Name + "." + c.String()
			if unbalanced[field] {
				continue
			}
			kb := host.New()
			before := kb.Snapshot()
			apply(kb, d.Actions[c].Begin)
			apply(kb, d.Actions[c].End)
			assert.True(t, before.Equal(kb.Snapshot()), "%s leaves %+v", field, kb.Snapshot())
			checked++
		}
	}
	assert.Greater(t, checked, 100)

	for _, m := range table.Macros {
		kb := host.New()
		before := kb.Snapshot()
		apply(kb, m.Action.Begin)
		assert.False(t, before.Equal(kb.Snapshot()), "macro.%s changes nothing while held", m.Name)
		apply(kb, m.Action.End)
		assert.True(t, before.Equal(kb.Snapshot()), "macro.%s leaves %+v", m.Name, kb.Snapshot())
	}
}

func apply(kb *host.Keyboard, effects []ir.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case ir.EffectKeyDown:
			kb.RegisterCode(e.Code)
		case ir.EffectKeyUp:
			kb.UnregisterCode(e.Code)
		case ir.EffectLayerOn:
			kb.LayerOn(e.Layer)
		case ir.EffectLayerOff:
			kb.LayerOff(e.Layer)
		}
	}
}

func TestBuiltin(t *testing.T) {
	table, err := Builtin("sofle")
	require.NoError(t, err)
	assert.Len(t, table.Dances, 49)

	_, err = Builtin("corne")
	assert.ErrorIs(t, err, ErrUnknownKeymap)
	assert.Equal(t, []string{"sofle"}, Builtins())
}
