package ir

import "fmt"

// Category is the classification result of one finalized interaction.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryUnknown
	SingleTap
	SingleHold
	DoubleTap
	DoubleHold
	DoubleSingleTap
	TripleTap
	TripleHold
	MoreTaps
)

var categoryNames = [...]string{
	CategoryNone:    "NONE",
	CategoryUnknown: "UNKNOWN",
	SingleTap:       "SINGLE_TAP",
	SingleHold:      "SINGLE_HOLD",
	DoubleTap:       "DOUBLE_TAP",
	DoubleHold:      "DOUBLE_HOLD",
	DoubleSingleTap: "DOUBLE_SINGLE_TAP",
	TripleTap:       "TRIPLE_TAP",
	TripleHold:      "TRIPLE_HOLD",
	MoreTaps:        "MORE_TAPS",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return int(c) < len(categoryNames)
}

// ParseCategory parses the upper-case name of a category (e.g. "DOUBLE_HOLD").
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return CategoryNone, fmt.Errorf("unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler so categories can be map keys.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
