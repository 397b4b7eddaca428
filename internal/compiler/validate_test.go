package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/ir"
)

func codes(findings []ValidationError) []string {
	var out []string
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

func singleDance(actions ir.ActionTable) *ir.DanceTable {
	return &ir.DanceTable{
		Name:   "t",
		Layers: []string{"BASE", "NAV"},
		Dances: []ir.Dance{{ID: 0, Name: "X", Actions: actions}},
	}
}

func TestValidate_CleanTable(t *testing.T) {
	table := singleDance(ir.ActionTable{
		ir.SingleTap:  {Begin: []ir.Effect{ir.KeyDown(ir.KC_A)}, End: []ir.Effect{ir.KeyUp(ir.KC_A)}},
		ir.SingleHold: {Begin: []ir.Effect{ir.LayerOn(1)}, End: []ir.Effect{ir.LayerOff(1)}},
		ir.DoubleTap: {
			Begin: []ir.Effect{ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_A)},
			End:   []ir.Effect{ir.KeyUp(ir.KC_A), ir.KeyUp(ir.KC_LCTL)},
		},
	})
	assert.Empty(t, Validate(table))
}

func TestValidate_Errors(t *testing.T) {
	table := &ir.DanceTable{
		Dances: []ir.Dance{
			{ID: 0, Name: "A", Actions: ir.ActionTable{
				ir.SingleTap: {Begin: []ir.Effect{ir.KeyDown(ir.KC_NO)}},
			}},
			{ID: 2, Name: "A", Actions: ir.ActionTable{
				ir.SingleHold: {Begin: []ir.Effect{ir.LayerOn(40)}},
			}},
			{ID: 2, Name: "", Actions: ir.ActionTable{
				ir.Category(77): {},
			}},
		},
	}

	findings := Validate(table)
	require.True(t, HasErrors(findings))
	got := codes(Errors(findings))
	for _, want := range []string{
		ErrTableNameEmpty, ErrInvalidKeycode, ErrDuplicateDance, ErrSparseIDs,
		ErrLayerOutOfRange, ErrDanceNameEmpty, ErrInvalidCategory,
	} {
		assert.Contains(t, got, want)
	}
}

func TestValidate_Macros(t *testing.T) {
	table := singleDance(ir.ActionTable{
		ir.SingleTap: {Begin: []ir.Effect{ir.KeyDown(ir.KC_A)}, End: []ir.Effect{ir.KeyUp(ir.KC_A)}},
	})
	table.Macros = []ir.Macro{
		{Name: "FUNC", Action: ir.Action{Begin: []ir.Effect{ir.LayerOn(1)}, End: []ir.Effect{ir.LayerOff(1)}}},
		{Name: "FUNC", Action: ir.Action{Begin: []ir.Effect{ir.LayerOn(1)}, End: []ir.Effect{ir.LayerOff(1)}}},
		{Name: "X", Action: ir.Action{Begin: []ir.Effect{ir.KeyDown(ir.KC_B)}, End: []ir.Effect{ir.KeyUp(ir.KC_B)}}},
		{Name: "", Action: ir.Action{Begin: []ir.Effect{ir.KeyDown(ir.KC_NO)}}},
		{Name: "STUCK", Action: ir.Action{Begin: []ir.Effect{ir.KeyDown(ir.KC_LCTL)}}},
		{Name: "NOOP"},
	}

	findings := Validate(table)
	assert.Equal(t, []string{
		ErrDuplicateMacro, ErrDuplicateMacro, ErrMacroNameEmpty, ErrInvalidKeycode,
		WarnKeysLeftDown, WarnUnreachable,
	}, codes(findings))

	byCode := make(map[string][]string)
	for _, f := range findings {
		byCode[f.Code] = append(byCode[f.Code], f.Field)
	}
	assert.Equal(t, []string{"macro.FUNC", "macro.X"}, byCode[ErrDuplicateMacro])
	assert.Equal(t, []string{"macros[3].begin[0]"}, byCode[ErrInvalidKeycode])
	assert.Equal(t, []string{"macro.STUCK"}, byCode[WarnKeysLeftDown])
	assert.Equal(t, []string{"macro.NOOP"}, byCode[WarnUnreachable])
}

func TestValidate_NoDances(t *testing.T) {
	findings := Validate(&ir.DanceTable{Name: "empty"})
	assert.Equal(t, []string{ErrNoDances}, codes(findings))
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		action ir.Action
		cat    ir.Category
		want   []string
	}{
		{
			name:   "layer move without end",
			cat:    ir.DoubleTap,
			action: ir.Action{Begin: []ir.Effect{ir.LayerOff(1), ir.LayerOn(0)}},
			want:   []string{WarnLayersChanged},
		},
		{
			name:   "layer on without end",
			cat:    ir.SingleHold,
			action: ir.Action{Begin: []ir.Effect{ir.LayerOn(1)}},
			want:   []string{WarnLayersChanged},
		},
		{
			name: "chord half released",
			cat:  ir.DoubleTap,
			action: ir.Action{
				Begin: []ir.Effect{ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_A)},
				End:   []ir.Effect{ir.KeyUp(ir.KC_LCTL)},
			},
			want: []string{WarnKeysLeftDown},
		},
		{
			name: "release order not reversed",
			cat:  ir.DoubleTap,
			action: ir.Action{
				Begin: []ir.Effect{ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_RBRC)},
				End:   []ir.Effect{ir.KeyUp(ir.KC_LCTL), ir.KeyUp(ir.KC_RBRC)},
			},
			want: []string{WarnNotReverseOrder},
		},
		{
			name: "release never pressed",
			cat:  ir.SingleTap,
			action: ir.Action{
				Begin: []ir.Effect{ir.KeyDown(ir.KC_A)},
				End:   []ir.Effect{ir.KeyUp(ir.KC_A), ir.KeyUp(ir.KC_B)},
			},
			want: []string{WarnUnpairedRelease},
		},
		{
			name:   "unreachable category",
			cat:    ir.CategoryUnknown,
			action: ir.Action{Begin: []ir.Effect{ir.KeyDown(ir.KC_A)}, End: []ir.Effect{ir.KeyUp(ir.KC_A)}},
			want:   []string{WarnUnreachable},
		},
		{
			name:   "undeclared layer",
			cat:    ir.SingleHold,
			action: ir.Action{Begin: []ir.Effect{ir.LayerOn(5)}, End: []ir.Effect{ir.LayerOff(5)}},
			want:   []string{WarnUndeclaredLayer, WarnUndeclaredLayer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Validate(singleDance(ir.ActionTable{tt.cat: tt.action}))
			assert.False(t, HasErrors(findings))
			assert.Equal(t, tt.want, codes(Warnings(findings)))
			for _, f := range findings {
				assert.True(t, f.IsWarning())
				assert.Equal(t, "dance.X."+tt.cat.String(), f.Field[:len("dance.X.")+len(tt.cat.String())])
			}
		})
	}
}

func TestValidate_FallThroughChord(t *testing.T) {
	// A double tap that also runs the triple-tap chord: every key comes
	// back up, but not in reverse order.
	action := ir.Action{
		Begin: []ir.Effect{
			ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_Y),
			ir.KeyDown(ir.KC_LCTL), ir.KeyDown(ir.KC_LALT), ir.KeyDown(ir.KC_LSFT), ir.KeyDown(ir.KC_Y),
		},
		End: []ir.Effect{
			ir.KeyUp(ir.KC_Y), ir.KeyUp(ir.KC_LCTL),
			ir.KeyUp(ir.KC_Y), ir.KeyUp(ir.KC_LSFT), ir.KeyUp(ir.KC_LALT), ir.KeyUp(ir.KC_LCTL),
		},
	}
	findings := Validate(singleDance(ir.ActionTable{ir.DoubleTap: action}))
	assert.Equal(t, []string{WarnNotReverseOrder}, codes(findings))
}

func TestValidate_EmptyDance(t *testing.T) {
	findings := Validate(singleDance(ir.ActionTable{}))
	assert.Equal(t, []string{WarnUnreachable}, codes(findings))
	assert.Equal(t, "dance.X", findings[0].Field)
}

func TestUnwind(t *testing.T) {
	begin := []ir.Effect{ir.KeyDown(ir.KC_LCTL), ir.LayerOn(2), ir.KeyDown(ir.KC_A)}
	assert.Equal(t, []ir.Effect{ir.KeyUp(ir.KC_A), ir.LayerOff(2), ir.KeyUp(ir.KC_LCTL)}, Unwind(begin))
	assert.Empty(t, Unwind(nil))
}
