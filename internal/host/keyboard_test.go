package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tapdance/internal/ir"
)

func TestKeyboard_RegisterIdempotent(t *testing.T) {
	k := New()
	k.RegisterCode(ir.KC_A)
	k.RegisterCode(ir.KC_A)
	assert.True(t, k.IsDown(ir.KC_A))
	assert.Equal(t, []ir.Keycode{ir.KC_A}, k.Down())

	k.UnregisterCode(ir.KC_A)
	assert.False(t, k.IsDown(ir.KC_A))
	assert.Len(t, k.Log(), 3, "every call is logged")

	k.UnregisterCode(ir.KC_B)
	assert.Empty(t, k.Down())
}

func TestKeyboard_Layers(t *testing.T) {
	k := New()
	assert.Equal(t, ir.Layer(0), k.HighestLayer())

	k.LayerOn(2)
	k.LayerOn(3)
	assert.True(t, k.LayerActive(2))
	assert.Equal(t, ir.Layer(3), k.HighestLayer())
	assert.Equal(t, []ir.Layer{2, 3}, k.ActiveLayers())
	assert.Equal(t, uint32(0b1100), k.LayerState())

	k.LayerOff(3)
	assert.Equal(t, ir.Layer(2), k.HighestLayer())
	k.LayerOff(2)
	assert.Zero(t, k.LayerState())
}

func TestKeyboard_LayerZeroIsStored(t *testing.T) {
	k := New()
	k.LayerOn(0)
	assert.True(t, k.LayerActive(0))
	assert.Equal(t, uint32(1), k.LayerState())

	k.LayerOff(0)
	assert.Zero(t, k.LayerState())
}

func TestKeyboard_Snapshot(t *testing.T) {
	k := New()
	before := k.Snapshot()

	k.RegisterCode(ir.KC_LCTL)
	k.RegisterCode(ir.KC_A)
	k.LayerOn(1)
	assert.False(t, before.Equal(k.Snapshot()))

	k.UnregisterCode(ir.KC_A)
	k.UnregisterCode(ir.KC_LCTL)
	k.LayerOff(1)
	assert.True(t, before.Equal(k.Snapshot()))

	k.ClearLog()
	assert.Empty(t, k.Log())
}
