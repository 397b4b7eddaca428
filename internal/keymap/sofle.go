package keymap

import "github.com/roach88/tapdance/internal/ir"

// Sofle layers.
const (
	Qwerty  ir.Layer = 0
	Ilstr   ir.Layer = 1
	Lfthnd  ir.Layer = 2
	Funcpad ir.Layer = 3
)

// Sofle returns the 49-dance table of the Sofle "design_pro" keymap.
//
// Every dance taps its own key on SINGLE_TAP. The table is kept exactly as
// the keyboard ships it, including entries validation warns about:
//   - ESC DOUBLE_TAP moves from ILSTR to QWERTY and never moves back
//   - I SINGLE_HOLD turns ILSTR on and never off
//   - RBRC, 0 and 2 release their chords in press order
//   - Y DOUBLE_TAP also runs the TRIPLE_TAP chord
//
// The LAYER, ARTBRD and FUNC macro keys sit next to the dances.
func Sofle() *ir.DanceTable {
	b := New("sofle").Layers("QWERTY", "ILSTR", "LFTHND", "FUNCPAD")

	b.Dance("ESC").
		On(ir.SingleTap, Tap(ir.KC_ESC)).
		On(ir.SingleHold, LayerHold(Lfthnd)).
		On(ir.DoubleTap, LayerMove(Ilstr, Qwerty))
	b.Dance("ENT").
		On(ir.SingleTap, Tap(ir.KC_ENT)).
		On(ir.SingleHold, LayerHold(Funcpad))

	ctrlTap(b, ir.KC_MINS)
	ctrlTap(b, ir.KC_EQL)
	ctrlShiftHold(b, ir.KC_LBRC)

	b.Dance("RBRC").
		On(ir.SingleTap, Tap(ir.KC_RBRC)).
		On(ir.DoubleTap, pressOrder(ir.KC_LCTL, ir.KC_RBRC)).
		On(ir.DoubleHold, pressOrder(ir.KC_LCTL, ir.KC_LSFT, ir.KC_RBRC))

	for kc := ir.KC_F1; kc <= ir.KC_F12; kc++ {
		dance(b, kc).
			On(ir.DoubleTap, Chord(ir.KC_LCTL, kc)).
			On(ir.DoubleHold, Chord(ir.KC_LSFT, kc)).
			On(ir.TripleTap, Chord(ir.KC_LCTL, ir.KC_LSFT, kc))
	}

	dance(b, ir.KC_0).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_0)).
		On(ir.DoubleHold, pressOrder(ir.KC_LCTL, ir.KC_LALT, ir.KC_0))
	ctrlTap(b, ir.KC_1)
	dance(b, ir.KC_2).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_2)).
		On(ir.DoubleHold, pressOrder(ir.KC_LCTL, ir.KC_LALT, ir.KC_2))
	ctrlAltHold(b, ir.KC_3)
	ctrlAltHold(b, ir.KC_5)
	ctrlAltShiftHold(b, ir.KC_7)
	ctrlAltShiftHold(b, ir.KC_8)

	modHold(b, ir.KC_A, Tap(ir.KC_LGUI))
	ctrlTap(b, ir.KC_B)
	modHold(b, ir.KC_C, Chord(ir.KC_LSFT, ir.KC_C))
	modHold(b, ir.KC_D, Tap(ir.KC_LALT))
	ctrlShiftHold(b, ir.KC_E)
	modHold(b, ir.KC_F, Tap(ir.KC_LCTL))
	ctrlShiftHold(b, ir.KC_G)
	ctrlShiftHold(b, ir.KC_H)

	dance(b, ir.KC_I).
		On(ir.SingleHold, Custom([]ir.Effect{ir.LayerOn(Ilstr)}, nil)).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_I)).
		On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LALT, ir.KC_LSFT, ir.KC_I)).
		On(ir.TripleTap, Chord(ir.KC_LCTL, ir.KC_I))

	modHold(b, ir.KC_J, Tap(ir.KC_RCTL))
	dance(b, ir.KC_K).On(ir.SingleHold, Tap(ir.KC_RALT))
	dance(b, ir.KC_L).On(ir.SingleHold, Tap(ir.KC_RGUI))
	ctrlShiftHold(b, ir.KC_N)

	dance(b, ir.KC_O).
		On(ir.SingleHold, Chord(ir.KC_LSFT, ir.KC_O)).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_O)).
		On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_O))

	modHold(b, ir.KC_P, Chord(ir.KC_LSFT, ir.KC_P))
	ctrlTap(b, ir.KC_Q)
	ctrlTap(b, ir.KC_R)

	dance(b, ir.KC_S).
		On(ir.SingleHold, Tap(ir.KC_LSFT)).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_S)).
		On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_S)).
		On(ir.TripleTap, Chord(ir.KC_LCTL, ir.KC_LALT, ir.KC_S))

	ctrlTap(b, ir.KC_T)

	dance(b, ir.KC_V).
		On(ir.SingleHold, Chord(ir.KC_LSFT, ir.KC_V)).
		On(ir.DoubleTap, Chord(ir.KC_LCTL, ir.KC_V)).
		On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_V)).
		On(ir.TripleTap, Chord(ir.KC_LCTL, ir.KC_LALT, ir.KC_LSFT, ir.KC_V))

	ctrlTap(b, ir.KC_W)
	modHold(b, ir.KC_X, Chord(ir.KC_LSFT, ir.KC_X))

	yTriple := Chord(ir.KC_LCTL, ir.KC_LALT, ir.KC_LSFT, ir.KC_Y)
	yDouble := Chord(ir.KC_LCTL, ir.KC_Y)
	dance(b, ir.KC_Y).
		On(ir.DoubleTap, Custom(
			concat(yDouble.Begin, yTriple.Begin),
			concat(yDouble.End, yTriple.End))).
		On(ir.TripleTap, yTriple)

	ctrlShiftHold(b, ir.KC_Z)

	b.Macro("LAYER", Chord(ir.KC_LCTL, ir.KC_LSFT, ir.KC_LBRC)).
		Macro("ARTBRD", Chord(ir.KC_LCTL, ir.KC_0)).
		Macro("FUNC", LayerHold(Funcpad))

	return b.MustBuild()
}

// dance starts a dance named after kc that taps kc on SINGLE_TAP.
func dance(b *Builder, kc ir.Keycode) *DanceBuilder {
	return b.Dance(kc.String()[len("KC_"):]).On(ir.SingleTap, Tap(kc))
}

func ctrlTap(b *Builder, kc ir.Keycode) *DanceBuilder {
	return dance(b, kc).On(ir.DoubleTap, Chord(ir.KC_LCTL, kc))
}

func ctrlShiftHold(b *Builder, kc ir.Keycode) {
	ctrlTap(b, kc).On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LSFT, kc))
}

func ctrlAltHold(b *Builder, kc ir.Keycode) {
	ctrlTap(b, kc).On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LALT, kc))
}

func ctrlAltShiftHold(b *Builder, kc ir.Keycode) {
	ctrlTap(b, kc).On(ir.DoubleHold, Chord(ir.KC_LCTL, ir.KC_LALT, ir.KC_LSFT, kc))
}

func modHold(b *Builder, kc ir.Keycode, hold ir.Action) {
	ctrlTap(b, kc).On(ir.SingleHold, hold)
}

// pressOrder registers keys in order and unregisters them in the same
// order.
func pressOrder(keys ...ir.Keycode) ir.Action {
	a := Chord(keys...)
	a.End = make([]ir.Effect, len(keys))
	for i, kc := range keys {
		a.End[i] = ir.KeyUp(kc)
	}
	return a
}

func concat(lists ...[]ir.Effect) []ir.Effect {
	var out []ir.Effect
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
