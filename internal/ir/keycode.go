package ir

import (
	"fmt"
	"strings"
)

// Keycode is a basic HID keyboard usage code, named the QMK way (KC_*).
// Only the basic range is modelled; the host owns everything else.
type Keycode uint16

const (
	KC_NO Keycode = 0x00

	KC_A Keycode = 0x04 + iota - 1
	KC_B
	KC_C
	KC_D
	KC_E
	KC_F
	KC_G
	KC_H
	KC_I
	KC_J
	KC_K
	KC_L
	KC_M
	KC_N
	KC_O
	KC_P
	KC_Q
	KC_R
	KC_S
	KC_T
	KC_U
	KC_V
	KC_W
	KC_X
	KC_Y
	KC_Z
	KC_1
	KC_2
	KC_3
	KC_4
	KC_5
	KC_6
	KC_7
	KC_8
	KC_9
	KC_0
	KC_ENT
	KC_ESC
	KC_BSPC
	KC_TAB
	KC_SPC
	KC_MINS
	KC_EQL
	KC_LBRC
	KC_RBRC
	KC_BSLS
	KC_NUHS
	KC_SCLN
	KC_QUOT
	KC_GRV
	KC_COMM
	KC_DOT
	KC_SLSH
	KC_CAPS
	KC_F1
	KC_F2
	KC_F3
	KC_F4
	KC_F5
	KC_F6
	KC_F7
	KC_F8
	KC_F9
	KC_F10
	KC_F11
	KC_F12
	KC_PSCR
	KC_SCRL
	KC_PAUS
	KC_INS
	KC_HOME
	KC_PGUP
	KC_DEL
	KC_END
	KC_PGDN
	KC_RGHT
	KC_LEFT
	KC_DOWN
	KC_UP
)

const (
	KC_F13 Keycode = 0x68 + iota
	KC_F14
	KC_F15
	KC_F16
	KC_F17
	KC_F18
	KC_F19
	KC_F20
	KC_F21
	KC_F22
	KC_F23
	KC_F24
)

// Modifiers occupy 0xE0-0xE7 in the HID usage table.
const (
	KC_LCTL Keycode = 0xE0 + iota
	KC_LSFT
	KC_LALT
	KC_LGUI
	KC_RCTL
	KC_RSFT
	KC_RALT
	KC_RGUI
)

var (
	keycodeNames  = map[Keycode]string{}
	keycodeByName = map[string]Keycode{}
)

func init() {
	add := func(kc Keycode, name string, aliases ...string) {
		keycodeNames[kc] = name
		keycodeByName[name] = kc
		for _, a := range aliases {
			keycodeByName[a] = kc
		}
	}

	add(KC_NO, "KC_NO")
	for i := 0; i < 26; i++ {
		add(KC_A+Keycode(i), "KC_"+string(rune('A'+i)))
	}
	for i := 1; i <= 9; i++ {
		add(KC_1+Keycode(i-1), fmt.Sprintf("KC_%d", i))
	}
	add(KC_0, "KC_0")
	for i := 1; i <= 12; i++ {
		add(KC_F1+Keycode(i-1), fmt.Sprintf("KC_F%d", i))
	}
	for i := 13; i <= 24; i++ {
		add(KC_F13+Keycode(i-13), fmt.Sprintf("KC_F%d", i))
	}

	add(KC_ENT, "KC_ENT", "KC_ENTER")
	add(KC_ESC, "KC_ESC", "KC_ESCAPE")
	add(KC_BSPC, "KC_BSPC", "KC_BACKSPACE")
	add(KC_TAB, "KC_TAB")
	add(KC_SPC, "KC_SPC", "KC_SPACE")
	add(KC_MINS, "KC_MINS", "KC_MINUS")
	add(KC_EQL, "KC_EQL", "KC_EQUAL")
	add(KC_LBRC, "KC_LBRC", "KC_LEFT_BRACKET")
	add(KC_RBRC, "KC_RBRC", "KC_RIGHT_BRACKET")
	add(KC_BSLS, "KC_BSLS", "KC_BACKSLASH")
	add(KC_NUHS, "KC_NUHS")
	add(KC_SCLN, "KC_SCLN", "KC_SEMICOLON")
	add(KC_QUOT, "KC_QUOT", "KC_QUOTE")
	add(KC_GRV, "KC_GRV", "KC_GRAVE")
	add(KC_COMM, "KC_COMM", "KC_COMMA")
	add(KC_DOT, "KC_DOT")
	add(KC_SLSH, "KC_SLSH", "KC_SLASH")
	add(KC_CAPS, "KC_CAPS", "KC_CAPS_LOCK")
	add(KC_PSCR, "KC_PSCR")
	add(KC_SCRL, "KC_SCRL")
	add(KC_PAUS, "KC_PAUS")
	add(KC_INS, "KC_INS", "KC_INSERT")
	add(KC_HOME, "KC_HOME")
	add(KC_PGUP, "KC_PGUP")
	add(KC_DEL, "KC_DEL", "KC_DELETE")
	add(KC_END, "KC_END")
	add(KC_PGDN, "KC_PGDN")
	add(KC_RGHT, "KC_RGHT", "KC_RIGHT")
	add(KC_LEFT, "KC_LEFT")
	add(KC_DOWN, "KC_DOWN")
	add(KC_UP, "KC_UP")

	add(KC_LCTL, "KC_LCTL", "KC_LEFT_CTRL")
	add(KC_LSFT, "KC_LSFT", "KC_LEFT_SHIFT")
	add(KC_LALT, "KC_LALT", "KC_LEFT_ALT")
	add(KC_LGUI, "KC_LGUI", "KC_LEFT_GUI")
	add(KC_RCTL, "KC_RCTL", "KC_RIGHT_CTRL")
	add(KC_RSFT, "KC_RSFT", "KC_RIGHT_SHIFT")
	add(KC_RALT, "KC_RALT", "KC_RIGHT_ALT")
	add(KC_RGUI, "KC_RGUI", "KC_RIGHT_GUI")
}

// String returns the canonical QMK name, or a hex literal for codes
// outside the modelled range.
func (kc Keycode) String() string {
	if name, ok := keycodeNames[kc]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(kc))
}

// Known reports whether kc is in the modelled keycode range.
func (kc Keycode) Known() bool {
	_, ok := keycodeNames[kc]
	return ok
}

// IsModifier reports whether kc is one of the eight HID modifier keys.
func (kc Keycode) IsModifier() bool {
	return kc >= KC_LCTL && kc <= KC_RGUI
}

// ParseKeycode resolves a QMK keycode name. The "KC_" prefix is optional
// and matching is case-insensitive.
func ParseKeycode(s string) (Keycode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "KC_") {
		name = "KC_" + name
	}
	if kc, ok := keycodeByName[name]; ok {
		return kc, nil
	}
	return KC_NO, fmt.Errorf("unknown keycode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (kc Keycode) MarshalText() ([]byte, error) {
	return []byte(kc.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (kc *Keycode) UnmarshalText(b []byte) error {
	parsed, err := ParseKeycode(string(b))
	if err != nil {
		return err
	}
	*kc = parsed
	return nil
}
