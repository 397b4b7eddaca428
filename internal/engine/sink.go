package engine

import "github.com/roach88/tapdance/internal/ir"

// Sink is the host API the engine drives. Calls are fire-and-forget.
type Sink interface {
	RegisterCode(kc ir.Keycode)
	UnregisterCode(kc ir.Keycode)
	LayerOn(l ir.Layer)
	LayerOff(l ir.Layer)
}

// Observer receives every trace entry the engine produces, in seq order.
// Observe is called on the engine goroutine and must not call back into
// the engine.
type Observer interface {
	Observe(entry ir.TraceEntry)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(entry ir.TraceEntry)

// Observe calls f(entry).
func (f ObserverFunc) Observe(entry ir.TraceEntry) { f(entry) }

// TraceBuffer is an Observer that keeps every entry in memory.
type TraceBuffer struct {
	Entries []ir.TraceEntry
}

// Observe appends the entry.
func (b *TraceBuffer) Observe(entry ir.TraceEntry) {
	b.Entries = append(b.Entries, entry)
}

// Kind returns the buffered entries of one kind.
func (b *TraceBuffer) Kind(kind ir.TraceKind) []ir.TraceEntry {
	var out []ir.TraceEntry
	for _, e := range b.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Effects returns the effects in the order they were sent to the sink.
func (b *TraceBuffer) Effects() []ir.Effect {
	var out []ir.Effect
	for _, e := range b.Entries {
		if e.Kind == ir.TraceEffect && e.Effect != nil {
			out = append(out, *e.Effect)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) Observe(entry ir.TraceEntry) {
	for _, o := range m {
		o.Observe(entry)
	}
}

type nopSink struct{}

func (nopSink) RegisterCode(ir.Keycode)   {}
func (nopSink) UnregisterCode(ir.Keycode) {}
func (nopSink) LayerOn(ir.Layer)          {}
func (nopSink) LayerOff(ir.Layer)         {}
