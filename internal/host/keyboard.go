// Package host simulates the parts of the keyboard firmware the engine
// drives: the set of registered keycodes and the layer state mask.
package host

import (
	"math/bits"
	"slices"

	"github.com/roach88/tapdance/internal/ir"
)

// Keyboard is an in-memory host. It satisfies engine.Sink.
//
// Registering a key that is already down is a no-op, as is unregistering
// one that is up, matching the host's HID report semantics. Every call is
// still appended to the log.
type Keyboard struct {
	keys   map[ir.Keycode]struct{}
	layers uint32
	log    []ir.Effect
}

// New returns a keyboard with no keys down and an empty layer mask. Layer 0
// is a bit like any other: LayerOn(0) sets it and LayerOff(0) clears it.
func New() *Keyboard {
	return &Keyboard{keys: make(map[ir.Keycode]struct{})}
}

// RegisterCode presses kc.
func (k *Keyboard) RegisterCode(kc ir.Keycode) {
	k.keys[kc] = struct{}{}
	k.log = append(k.log, ir.KeyDown(kc))
}

// UnregisterCode releases kc.
func (k *Keyboard) UnregisterCode(kc ir.Keycode) {
	delete(k.keys, kc)
	k.log = append(k.log, ir.KeyUp(kc))
}

// LayerOn sets bit l of the layer state.
func (k *Keyboard) LayerOn(l ir.Layer) {
	if int(l) < ir.MaxLayers {
		k.layers |= 1 << l
	}
	k.log = append(k.log, ir.LayerOn(l))
}

// LayerOff clears bit l of the layer state.
func (k *Keyboard) LayerOff(l ir.Layer) {
	if int(l) < ir.MaxLayers {
		k.layers &^= 1 << l
	}
	k.log = append(k.log, ir.LayerOff(l))
}

// IsDown reports whether kc is registered.
func (k *Keyboard) IsDown(kc ir.Keycode) bool {
	_, ok := k.keys[kc]
	return ok
}

// Down returns the registered keycodes in ascending order.
func (k *Keyboard) Down() []ir.Keycode {
	out := make([]ir.Keycode, 0, len(k.keys))
	for kc := range k.keys {
		out = append(out, kc)
	}
	slices.Sort(out)
	return out
}

// LayerState returns the layer mask.
func (k *Keyboard) LayerState() uint32 {
	return k.layers
}

// LayerActive reports whether layer l is on.
func (k *Keyboard) LayerActive(l ir.Layer) bool {
	return int(l) < ir.MaxLayers && k.layers&(1<<l) != 0
}

// ActiveLayers returns the layers that are on, lowest first.
func (k *Keyboard) ActiveLayers() []ir.Layer {
	var out []ir.Layer
	for m := k.layers; m != 0; m &= m - 1 {
		out = append(out, ir.Layer(bits.TrailingZeros32(m)))
	}
	return out
}

// HighestLayer returns the highest active layer, or 0 when none is on.
func (k *Keyboard) HighestLayer() ir.Layer {
	if k.layers == 0 {
		return 0
	}
	return ir.Layer(31 - bits.LeadingZeros32(k.layers))
}

// Log returns a copy of every call made, in order.
func (k *Keyboard) Log() []ir.Effect {
	return slices.Clone(k.log)
}

// ClearLog drops the call log without touching key or layer state.
func (k *Keyboard) ClearLog() {
	k.log = k.log[:0]
}

// Snapshot captures key and layer state for later comparison.
func (k *Keyboard) Snapshot() State {
	return State{Keys: k.Down(), Layers: k.layers}
}

// State is a point-in-time copy of the host's key and layer state.
type State struct {
	Keys   []ir.Keycode `json:"keys"`
	Layers uint32       `json:"layers"`
}

// Equal reports whether two states hold the same keys and layers.
func (s State) Equal(o State) bool {
	return s.Layers == o.Layers && slices.Equal(s.Keys, o.Keys)
}
