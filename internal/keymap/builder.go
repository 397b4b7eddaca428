// Package keymap builds dance tables in Go and ships the built-in keymaps.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/tapdance/internal/compiler"
	"github.com/roach88/tapdance/internal/ir"
)

// Builder assembles a DanceTable. Dance IDs follow the order of Dance calls.
//
//	table, warnings, err := keymap.New("mini").
//		Layers("BASE", "NAV").
//		Dance("ESC").On(ir.SingleTap, keymap.Tap(ir.KC_ESC)).
//		Build()
type Builder struct {
	name   string
	layers []string
	dances []*DanceBuilder
	macros []ir.Macro
}

// New starts a table called name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Layers declares layer names; the first is layer 0.
func (b *Builder) Layers(names ...string) *Builder {
	b.layers = append(b.layers, names...)
	return b
}

// Dance adds a dance key and returns its builder.
func (b *Builder) Dance(name string) *DanceBuilder {
	d := &DanceBuilder{
		parent: b,
		dance: ir.Dance{
			ID:      ir.DanceKeyID(len(b.dances)),
			Name:    name,
			Actions: ir.ActionTable{},
		},
	}
	b.dances = append(b.dances, d)
	return d
}

// Macro adds a macro key that runs a's begin effects on press and its
// end effects on release.
func (b *Builder) Macro(name string, a ir.Action) *Builder {
	b.macros = append(b.macros, ir.Macro{Name: name, Action: a})
	return b
}

// Build produces the table and validates it. Validation warnings are
// returned alongside the table; any validation error fails the build.
func (b *Builder) Build() (*ir.DanceTable, []compiler.ValidationError, error) {
	table := &ir.DanceTable{
		Name:   b.name,
		Layers: append([]string(nil), b.layers...),
		Dances: make([]ir.Dance, len(b.dances)),
	}
	for i, d := range b.dances {
		actions := make(ir.ActionTable, len(d.dance.Actions))
		for c, a := range d.dance.Actions {
			actions[c] = a
		}
		table.Dances[i] = ir.Dance{ID: d.dance.ID, Name: d.dance.Name, Actions: actions}
	}
	if len(b.macros) > 0 {
		table.Macros = append([]ir.Macro(nil), b.macros...)
	}

	findings := compiler.Validate(table)
	if compiler.HasErrors(findings) {
		errs := compiler.Errors(findings)
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, findings, fmt.Errorf("keymap %q: %s", b.name, strings.Join(msgs, "; "))
	}
	return table, compiler.Warnings(findings), nil
}

// MustBuild is like Build but panics on error.
// Use only for tables defined in code.
func (b *Builder) MustBuild() *ir.DanceTable {
	table, _, err := b.Build()
	if err != nil {
		panic(err)
	}
	return table
}

// DanceBuilder binds categories for one dance.
type DanceBuilder struct {
	parent *Builder
	dance  ir.Dance
}

// On binds action to category c, replacing any earlier binding.
func (d *DanceBuilder) On(c ir.Category, a ir.Action) *DanceBuilder {
	d.dance.Actions[c] = a
	return d
}

// Dance starts the next dance on the parent builder.
func (d *DanceBuilder) Dance(name string) *DanceBuilder {
	return d.parent.Dance(name)
}

// Build builds the parent table.
func (d *DanceBuilder) Build() (*ir.DanceTable, []compiler.ValidationError, error) {
	return d.parent.Build()
}

// Tap registers kc on begin and unregisters it on end.
func Tap(kc ir.Keycode) ir.Action {
	return Chord(kc)
}

// Chord registers keys in order and unregisters them in reverse.
func Chord(keys ...ir.Keycode) ir.Action {
	begin := make([]ir.Effect, len(keys))
	for i, kc := range keys {
		begin[i] = ir.KeyDown(kc)
	}
	return ir.Action{Begin: begin, End: compiler.Unwind(begin)}
}

// LayerHold turns layer l on for as long as the interaction lasts.
func LayerHold(l ir.Layer) ir.Action {
	return ir.Action{Begin: []ir.Effect{ir.LayerOn(l)}, End: []ir.Effect{ir.LayerOff(l)}}
}

// LayerMove switches from one layer to another and leaves it there.
func LayerMove(from, to ir.Layer) ir.Action {
	return ir.Action{Begin: []ir.Effect{ir.LayerOff(from), ir.LayerOn(to)}}
}

// Custom is an action with explicit, unchecked begin and end effects.
func Custom(begin, end []ir.Effect) ir.Action {
	return ir.Action{Begin: begin, End: end}
}

// ErrUnknownKeymap is returned by Builtin for names it does not know.
var ErrUnknownKeymap = errors.New("unknown built-in keymap")

var builtins = map[string]func() *ir.DanceTable{
	"sofle": Sofle,
}

// Builtin returns a fresh copy of a built-in table.
func Builtin(name string) (*ir.DanceTable, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownKeymap, name, strings.Join(Builtins(), ", "))
	}
	return f(), nil
}

// Builtins lists the built-in table names.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
