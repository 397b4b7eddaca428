package ir

import (
	"fmt"
	"math"
)

// DanceKeyID identifies one configured tap-dance key.
// IDs are assigned densely from 0 in declaration order when a table is built.
type DanceKeyID uint16

// NoDance marks a physical key that is not bound to any tap-dance key.
const NoDance DanceKeyID = math.MaxUint16

// String returns the numeric form, or "none" for NoDance.
func (id DanceKeyID) String() string {
	if id == NoDance {
		return "none"
	}
	return fmt.Sprintf("%d", uint16(id))
}

// KeyPos identifies a physical key slot (matrix position or any stable name
// the host chooses). Two positions may be bound to the same DanceKeyID.
type KeyPos string

// Millis is a firmware millisecond timestamp. It wraps at 2^32 like the
// 32-bit timers on the host, so use Elapsed instead of plain subtraction
// when comparing.
type Millis uint32

// Elapsed returns the milliseconds from since to now, correct across one
// wraparound of the timer.
func Elapsed(now, since Millis) Millis {
	return now - since
}

// Before reports whether a is earlier than b. Differences of half the
// timer range or more read as b being earlier, as after a wraparound.
func Before(a, b Millis) bool {
	d := Elapsed(b, a)
	return d != 0 && d < 1<<31
}

// Layer is a keymap layer index. The host keeps layer state in a 32-bit mask.
type Layer uint8

// MaxLayers is the number of layers the host layer mask can address.
const MaxLayers = 32

// DanceState is the working record of one in-progress interaction.
// The zero value is the idle state.
type DanceState struct {
	Count       uint8 `json:"count"`
	Pressed     bool  `json:"pressed"`
	Interrupted bool  `json:"interrupted"`
}

// IsZero reports whether s is the idle state.
func (s DanceState) IsZero() bool {
	return s == DanceState{}
}

// InputKind distinguishes input event kinds.
type InputKind uint8

const (
	// InputPress is a physical key going down.
	InputPress InputKind = iota + 1
	// InputRelease is a physical key going up.
	InputRelease
	// InputTick is a periodic timer poll carrying only a timestamp.
	InputTick
)

var inputKindNames = map[InputKind]string{
	InputPress:   "press",
	InputRelease: "release",
	InputTick:    "tick",
}

func (k InputKind) String() string {
	if s, ok := inputKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("InputKind(%d)", uint8(k))
}

// ParseInputKind parses "press", "release" or "tick".
func ParseInputKind(s string) (InputKind, error) {
	for k, name := range inputKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown input kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k InputKind) MarshalText() ([]byte, error) {
	if _, ok := inputKindNames[k]; !ok {
		return nil, fmt.Errorf("invalid input kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InputKind) UnmarshalText(b []byte) error {
	parsed, err := ParseInputKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// InputEvent is one event from the host event loop.
//
// Dance is the tap-dance key the host resolved for Key on the active layer,
// or NoDance for an ordinary key. Macro names the custom keycode bound to
// Key, if any; Dance is NoDance then. Tick events carry only At.
type InputEvent struct {
	Kind  InputKind  `json:"kind"`
	Key   KeyPos     `json:"key,omitempty"`
	Dance DanceKeyID `json:"dance"`
	Macro string     `json:"macro,omitempty"`
	At    Millis     `json:"at"`
}

// Press builds a press event.
func Press(key KeyPos, dance DanceKeyID, at Millis) InputEvent {
	return InputEvent{Kind: InputPress, Key: key, Dance: dance, At: at}
}

// Release builds a release event.
func Release(key KeyPos, dance DanceKeyID, at Millis) InputEvent {
	return InputEvent{Kind: InputRelease, Key: key, Dance: dance, At: at}
}

// PressMacro builds a press event for a macro key.
func PressMacro(key KeyPos, macro string, at Millis) InputEvent {
	return InputEvent{Kind: InputPress, Key: key, Dance: NoDance, Macro: macro, At: at}
}

// ReleaseMacro builds a release event for a macro key.
func ReleaseMacro(key KeyPos, macro string, at Millis) InputEvent {
	return InputEvent{Kind: InputRelease, Key: key, Dance: NoDance, Macro: macro, At: at}
}

// Tick builds a timer poll event.
func Tick(at Millis) InputEvent {
	return InputEvent{Kind: InputTick, Dance: NoDance, At: at}
}
