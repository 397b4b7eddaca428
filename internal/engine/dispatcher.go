package engine

import "github.com/roach88/tapdance/internal/ir"

// Dispatcher turns categories into effects and executes them on the sink.
//
// Begin and End are pure table lookups. OnFinalized and OnReset execute
// the looked-up effects in table order and return them so the caller can
// record what was emitted. No modifier tracking is done: the table is
// executed exactly as written, balanced or not.
type Dispatcher struct {
	table *ir.DanceTable
	sink  Sink
}

// NewDispatcher creates a dispatcher for table that writes to sink.
func NewDispatcher(table *ir.DanceTable, sink Sink) *Dispatcher {
	if sink == nil {
		sink = nopSink{}
	}
	return &Dispatcher{table: table, sink: sink}
}

// Begin returns the effects bound to category for the dance, or nil when
// the dance does not bind it.
func (d *Dispatcher) Begin(id ir.DanceKeyID, category ir.Category) []ir.Effect {
	if a, ok := d.action(id, category); ok {
		return a.Begin
	}
	return nil
}

// End returns the cleanup effects bound to category for the dance.
func (d *Dispatcher) End(id ir.DanceKeyID, category ir.Category) []ir.Effect {
	if a, ok := d.action(id, category); ok {
		return a.End
	}
	return nil
}

// OnFinalized runs the begin effects for a finalized interaction.
func (d *Dispatcher) OnFinalized(id ir.DanceKeyID, category ir.Category) []ir.Effect {
	effects := d.Begin(id, category)
	d.execute(effects)
	return effects
}

// OnReset runs the end effects for the category the slot was finalized as.
func (d *Dispatcher) OnReset(id ir.DanceKeyID, category ir.Category) []ir.Effect {
	effects := d.End(id, category)
	d.execute(effects)
	return effects
}

// OnMacroPress runs the begin effects of the named macro.
func (d *Dispatcher) OnMacroPress(name string) []ir.Effect {
	m, ok := d.table.MacroByName(name)
	if !ok {
		return nil
	}
	d.execute(m.Action.Begin)
	return m.Action.Begin
}

// OnMacroRelease runs the end effects of the named macro.
func (d *Dispatcher) OnMacroRelease(name string) []ir.Effect {
	m, ok := d.table.MacroByName(name)
	if !ok {
		return nil
	}
	d.execute(m.Action.End)
	return m.Action.End
}

func (d *Dispatcher) action(id ir.DanceKeyID, category ir.Category) (ir.Action, bool) {
	dance, ok := d.table.Lookup(id)
	if !ok {
		return ir.Action{}, false
	}
	a, ok := dance.Actions[category]
	return a, ok
}

func (d *Dispatcher) execute(effects []ir.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case ir.EffectKeyDown:
			d.sink.RegisterCode(e.Code)
		case ir.EffectKeyUp:
			d.sink.UnregisterCode(e.Code)
		case ir.EffectLayerOn:
			d.sink.LayerOn(e.Layer)
		case ir.EffectLayerOff:
			d.sink.LayerOff(e.Layer)
		}
	}
}
