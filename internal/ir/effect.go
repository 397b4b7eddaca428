package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// EffectKind is the kind of host call an effect performs.
type EffectKind uint8

const (
	EffectKeyDown EffectKind = iota + 1
	EffectKeyUp
	EffectLayerOn
	EffectLayerOff
)

var effectKindNames = map[EffectKind]string{
	EffectKeyDown:  "down",
	EffectKeyUp:    "up",
	EffectLayerOn:  "layer_on",
	EffectLayerOff: "layer_off",
}

func (k EffectKind) String() string {
	if s, ok := effectKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EffectKind(%d)", uint8(k))
}

// IsKey reports whether the kind acts on a keycode rather than a layer.
func (k EffectKind) IsKey() bool {
	return k == EffectKeyDown || k == EffectKeyUp
}

// Effect is one host call: a key registered or unregistered, or a layer
// switched on or off. Code is set for key effects, Layer for layer effects.
type Effect struct {
	Kind  EffectKind
	Code  Keycode
	Layer Layer
}

// KeyDown registers kc with the host.
func KeyDown(kc Keycode) Effect { return Effect{Kind: EffectKeyDown, Code: kc} }

// KeyUp unregisters kc.
func KeyUp(kc Keycode) Effect { return Effect{Kind: EffectKeyUp, Code: kc} }

// LayerOn activates layer l.
func LayerOn(l Layer) Effect { return Effect{Kind: EffectLayerOn, Layer: l} }

// LayerOff deactivates layer l.
func LayerOff(l Layer) Effect { return Effect{Kind: EffectLayerOff, Layer: l} }

// Inverse returns the effect that undoes e.
func (e Effect) Inverse() Effect {
	switch e.Kind {
	case EffectKeyDown:
		return KeyUp(e.Code)
	case EffectKeyUp:
		return KeyDown(e.Code)
	case EffectLayerOn:
		return LayerOff(e.Layer)
	case EffectLayerOff:
		return LayerOn(e.Layer)
	}
	return e
}

// String renders e as "down KC_A", "up KC_A", "layer_on 2" or "layer_off 2".
func (e Effect) String() string {
	if e.Kind.IsKey() {
		return e.Kind.String() + " " + e.Code.String()
	}
	return e.Kind.String() + " " + strconv.Itoa(int(e.Layer))
}

// ParseEffect parses the String form. Layers must be numeric here; use
// DanceTable.ParseEffect to resolve layer names.
func ParseEffect(s string) (Effect, error) {
	return parseEffect(s, func(name string) (Layer, error) {
		return parseLayerNumber(name)
	})
}

func parseEffect(s string, layer func(string) (Layer, error)) (Effect, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Effect{}, fmt.Errorf("effect %q: want \"<kind> <operand>\"", s)
	}
	switch fields[0] {
	case "down", "up":
		kc, err := ParseKeycode(fields[1])
		if err != nil {
			return Effect{}, fmt.Errorf("effect %q: %w", s, err)
		}
		if fields[0] == "down" {
			return KeyDown(kc), nil
		}
		return KeyUp(kc), nil
	case "layer_on", "layer_off":
		l, err := layer(fields[1])
		if err != nil {
			return Effect{}, fmt.Errorf("effect %q: %w", s, err)
		}
		if fields[0] == "layer_on" {
			return LayerOn(l), nil
		}
		return LayerOff(l), nil
	}
	return Effect{}, fmt.Errorf("effect %q: unknown kind %q", s, fields[0])
}

func parseLayerNumber(s string) (Layer, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("layer %q is not a number", s)
	}
	if n < 0 || n >= MaxLayers {
		return 0, fmt.Errorf("layer %d out of range 0-%d", n, MaxLayers-1)
	}
	return Layer(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (e Effect) MarshalText() ([]byte, error) {
	if _, ok := effectKindNames[e.Kind]; !ok {
		return nil, fmt.Errorf("invalid effect kind %d", uint8(e.Kind))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Effect) UnmarshalText(b []byte) error {
	parsed, err := ParseEffect(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// FormatEffects renders a list of effects separated by ", ".
func FormatEffects(effects []Effect) string {
	parts := make([]string, len(effects))
	for i, e := range effects {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
