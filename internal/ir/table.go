package ir

import (
	"fmt"
	"strconv"
)

// Action is what a dance does for one category: Begin runs when the
// interaction is classified, End runs when the slot resets.
type Action struct {
	Begin []Effect `json:"begin"`
	End   []Effect `json:"end"`
}

// IsEmpty reports whether the action performs no effects at all.
func (a Action) IsEmpty() bool {
	return len(a.Begin) == 0 && len(a.End) == 0
}

// ActionTable maps categories to actions. Missing categories do nothing.
type ActionTable map[Category]Action

// Dance is one configured tap-dance key.
type Dance struct {
	ID      DanceKeyID  `json:"id"`
	Name    string      `json:"name"`
	Actions ActionTable `json:"actions"`
}

// Categories returns the categories the dance binds, in Category order.
func (d Dance) Categories() []Category {
	var out []Category
	for _, c := range Categories() {
		if _, ok := d.Actions[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Macro is a plain custom keycode: Begin runs when its key goes down and
// End when it comes up. Macros never take part in tap counting.
type Macro struct {
	Name   string `json:"name"`
	Action Action `json:"action"`
}

// DanceTable is the complete configuration for one keymap.
// Dances[i].ID == i for a well-formed table.
type DanceTable struct {
	Name   string   `json:"name"`
	Layers []string `json:"layers"`
	Dances []Dance  `json:"dances"`
	Macros []Macro  `json:"macros,omitempty"`
}

// Lookup returns the dance with the given ID.
func (t *DanceTable) Lookup(id DanceKeyID) (Dance, bool) {
	if int(id) < len(t.Dances) && t.Dances[id].ID == id {
		return t.Dances[id], true
	}
	for _, d := range t.Dances {
		if d.ID == id {
			return d, true
		}
	}
	return Dance{}, false
}

// ByName returns the dance with the given name.
func (t *DanceTable) ByName(name string) (Dance, bool) {
	for _, d := range t.Dances {
		if d.Name == name {
			return d, true
		}
	}
	return Dance{}, false
}

// MacroByName returns the macro with the given name.
func (t *DanceTable) MacroByName(name string) (Macro, bool) {
	for _, m := range t.Macros {
		if m.Name == name {
			return m, true
		}
	}
	return Macro{}, false
}

// LayerIndex resolves a layer name, or a decimal layer number.
func (t *DanceTable) LayerIndex(name string) (Layer, bool) {
	for i, l := range t.Layers {
		if l == name {
			return Layer(i), true
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < MaxLayers {
		return Layer(n), true
	}
	return 0, false
}

// LayerName returns the declared name of l, or its number.
func (t *DanceTable) LayerName(l Layer) string {
	if int(l) < len(t.Layers) {
		return t.Layers[l]
	}
	return strconv.Itoa(int(l))
}

// FormatEffect renders e using declared layer names.
func (t *DanceTable) FormatEffect(e Effect) string {
	if e.Kind.IsKey() {
		return e.String()
	}
	return e.Kind.String() + " " + t.LayerName(e.Layer)
}

// ParseEffect parses an effect, resolving layer operands by name or number.
func (t *DanceTable) ParseEffect(s string) (Effect, error) {
	return parseEffect(s, func(name string) (Layer, error) {
		if l, ok := t.LayerIndex(name); ok {
			return l, nil
		}
		return 0, fmt.Errorf("unknown layer %q", name)
	})
}
