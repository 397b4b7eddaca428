// Package compiler turns CUE keymap definitions into ir.DanceTable values
// and validates tables before they reach the engine.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tapdance/internal/ir"
)

// CompileTable parses a keymap value into a DanceTable.
// Uses the CUE Go API directly.
//
// The value has this shape; dance IDs follow field order:
//
//	name:   "sofle"
//	layers: ["QWERTY", "ILSTR"]
//	dance: ESC: {
//		SINGLE_TAP:  tap: "KC_ESC"
//		SINGLE_HOLD: layer_hold: "ILSTR"
//		DOUBLE_TAP:  chord: ["KC_LCTL", "KC_ESC"]
//		TRIPLE_TAP:  {begin: ["layer_on ILSTR"], end: []}
//	}
//	macro: FUNC: layer_hold: "FUNCPAD"
//
// Macros are optional and take the same action forms as a category.
func CompileTable(v cue.Value) (*ir.DanceTable, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table := &ir.DanceTable{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "keymap name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	table.Name = name

	table.Layers, err = parseLayers(v)
	if err != nil {
		return nil, err
	}

	danceVal := v.LookupPath(cue.ParsePath("dance"))
	if !danceVal.Exists() {
		return nil, &CompileError{Field: "dance", Message: "at least one dance is required", Pos: v.Pos()}
	}
	iter, err := danceVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		id := ir.DanceKeyID(len(table.Dances))
		dance, err := compileDance(table, id, iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		table.Dances = append(table.Dances, dance)
	}
	if len(table.Dances) == 0 {
		return nil, &CompileError{Field: "dance", Message: "at least one dance is required", Pos: danceVal.Pos()}
	}

	table.Macros, err = parseMacros(table, v)
	if err != nil {
		return nil, err
	}

	return table, nil
}

func parseMacros(table *ir.DanceTable, v cue.Value) ([]ir.Macro, error) {
	macroVal := v.LookupPath(cue.ParsePath("macro"))
	if !macroVal.Exists() {
		return nil, nil
	}
	iter, err := macroVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var macros []ir.Macro
	for iter.Next() {
		name := iter.Selector().Unquoted()
		action, err := compileAction(table, "macro."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		macros = append(macros, ir.Macro{Name: name, Action: action})
	}
	return macros, nil
}

// CompileSource compiles a single CUE document. filename is only used in
// error positions.
func CompileSource(filename string, src []byte) (*ir.DanceTable, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileTable(v)
}

func parseLayers(v cue.Value) ([]string, error) {
	layersVal := v.LookupPath(cue.ParsePath("layers"))
	if !layersVal.Exists() {
		return nil, nil
	}
	iter, err := layersVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var layers []string
	seen := make(map[string]bool)
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if seen[name] {
			return nil, &CompileError{Field: "layers", Message: fmt.Sprintf("duplicate layer %q", name), Pos: iter.Value().Pos()}
		}
		if len(layers) == ir.MaxLayers {
			return nil, &CompileError{Field: "layers", Message: fmt.Sprintf("at most %d layers", ir.MaxLayers), Pos: iter.Value().Pos()}
		}
		seen[name] = true
		layers = append(layers, name)
	}
	return layers, nil
}

// compileDance parses one dance's category → action map.
func compileDance(table *ir.DanceTable, id ir.DanceKeyID, name string, v cue.Value) (ir.Dance, error) {
	dance := ir.Dance{ID: id, Name: name, Actions: ir.ActionTable{}}

	iter, err := v.Fields()
	if err != nil {
		return dance, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		field := fmt.Sprintf("dance.%s.%s", name, label)

		category, err := ir.ParseCategory(label)
		if err != nil {
			return dance, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		action, err := compileAction(table, field, iter.Value())
		if err != nil {
			return dance, err
		}
		dance.Actions[category] = action
	}
	return dance, nil
}

// compileAction accepts exactly one of tap, chord, layer_hold or begin/end.
func compileAction(table *ir.DanceTable, field string, v cue.Value) (ir.Action, error) {
	forms := 0
	for _, f := range []string{"tap", "chord", "layer_hold"} {
		if v.LookupPath(cue.ParsePath(f)).Exists() {
			forms++
		}
	}
	beginVal := v.LookupPath(cue.ParsePath("begin"))
	endVal := v.LookupPath(cue.ParsePath("end"))
	if beginVal.Exists() || endVal.Exists() {
		forms++
	}
	if forms != 1 {
		return ir.Action{}, &CompileError{
			Field:   field,
			Message: "action needs exactly one of tap, chord, layer_hold or begin/end",
			Pos:     v.Pos(),
		}
	}

	if tapVal := v.LookupPath(cue.ParsePath("tap")); tapVal.Exists() {
		kc, err := parseKeycode(field+".tap", tapVal)
		if err != nil {
			return ir.Action{}, err
		}
		return ir.Action{Begin: []ir.Effect{ir.KeyDown(kc)}, End: []ir.Effect{ir.KeyUp(kc)}}, nil
	}

	if chordVal := v.LookupPath(cue.ParsePath("chord")); chordVal.Exists() {
		iter, err := chordVal.List()
		if err != nil {
			return ir.Action{}, formatCUEError(err)
		}
		var action ir.Action
		for iter.Next() {
			kc, err := parseKeycode(field+".chord", iter.Value())
			if err != nil {
				return ir.Action{}, err
			}
			action.Begin = append(action.Begin, ir.KeyDown(kc))
		}
		for i := len(action.Begin) - 1; i >= 0; i-- {
			action.End = append(action.End, action.Begin[i].Inverse())
		}
		return action, nil
	}

	if layerVal := v.LookupPath(cue.ParsePath("layer_hold")); layerVal.Exists() {
		l, err := parseLayer(table, field+".layer_hold", layerVal)
		if err != nil {
			return ir.Action{}, err
		}
		return ir.Action{Begin: []ir.Effect{ir.LayerOn(l)}, End: []ir.Effect{ir.LayerOff(l)}}, nil
	}

	begin, err := parseEffects(table, field+".begin", beginVal)
	if err != nil {
		return ir.Action{}, err
	}
	end, err := parseEffects(table, field+".end", endVal)
	if err != nil {
		return ir.Action{}, err
	}
	return ir.Action{Begin: begin, End: end}, nil
}

func parseKeycode(field string, v cue.Value) (ir.Keycode, error) {
	s, err := v.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	kc, err := ir.ParseKeycode(s)
	if err != nil {
		return 0, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return kc, nil
}

func parseLayer(table *ir.DanceTable, field string, v cue.Value) (ir.Layer, error) {
	if n, err := v.Int64(); err == nil {
		if n < 0 || n >= ir.MaxLayers {
			return 0, &CompileError{Field: field, Message: fmt.Sprintf("layer %d out of range 0-%d", n, ir.MaxLayers-1), Pos: v.Pos()}
		}
		return ir.Layer(n), nil
	}
	s, err := v.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	l, ok := table.LayerIndex(s)
	if !ok {
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("unknown layer %q", s), Pos: v.Pos()}
	}
	return l, nil
}

func parseEffects(table *ir.DanceTable, field string, v cue.Value) ([]ir.Effect, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var effects []ir.Effect
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e, err := table.ParseEffect(s)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		effects = append(effects, e)
	}
	return effects, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError turns the first CUE error into a CompileError carrying its
// position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
