package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tapdance/internal/ir"
)

const (
	// DefaultTappingTerm is the window after each press in which another
	// press still counts toward the same interaction.
	DefaultTappingTerm ir.Millis = 200

	// DefaultSettleDelay is how long a released, finalized slot waits
	// before running its end effects.
	DefaultSettleDelay ir.Millis = 10
)

// Stats counts what the engine has done since construction.
type Stats struct {
	Inputs     int `json:"inputs"`
	Finalized  int `json:"finalized"`
	Resets     int `json:"resets"`
	Effects    int `json:"effects"`
	Interrupts int `json:"interrupts"`
	Macros     int `json:"macros"`
	Ignored    int `json:"ignored"`
}

// Engine is the tap-dance state machine for one DanceTable.
//
// Thread-safety model:
//   - Handle, Tick: engine goroutine only; never concurrently with Run
//   - Enqueue, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// INVARIANTS:
//   - At most one open interaction per DanceKeyID
//   - Slots are scanned in DanceKeyID order
//   - Every finalized interaction is reset exactly once
type Engine struct {
	table       *ir.DanceTable
	registry    *Registry
	dispatcher  *Dispatcher
	observer    Observer
	clock       *Clock
	logger      *slog.Logger
	queue       *inputQueue
	held        map[ir.KeyPos]string // macro held down at each key
	tappingTerm ir.Millis
	settle      ir.Millis
	now         ir.Millis
	stats       Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithTappingTerm sets the tapping window. Default: 200ms.
func WithTappingTerm(term ir.Millis) Option {
	return func(e *Engine) {
		e.tappingTerm = term
	}
}

// WithSettleDelay sets the delay between release and reset. Default: 10ms.
// Zero resets in the same step as the release.
func WithSettleDelay(d ir.Millis) Option {
	return func(e *Engine) {
		e.settle = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o == nil {
			return
		}
		if e.observer == nil {
			e.observer = o
			return
		}
		if m, ok := e.observer.(multiObserver); ok {
			e.observer = append(m, o)
			return
		}
		e.observer = multiObserver{e.observer, o}
	}
}

// New creates an engine for table writing to sink.
//
// The table must have dense IDs: Dances[i].ID == i. A nil sink discards
// effects, which is useful when only the trace matters.
func New(table *ir.DanceTable, sink Sink, opts ...Option) (*Engine, error) {
	if table == nil {
		return nil, &ConfigError{Code: ErrCodeNilTable, Message: "dance table is nil"}
	}
	for i, d := range table.Dances {
		if int(d.ID) != i {
			return nil, &ConfigError{
				Code:    ErrCodeSparseIDs,
				Message: fmt.Sprintf("dance at index %d has id %d", i, d.ID),
				Dance:   d.Name,
			}
		}
	}

	registry, err := NewRegistry(len(table.Dances))
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}

	e := &Engine{
		table:       table,
		registry:    registry,
		dispatcher:  NewDispatcher(table, sink),
		clock:       NewClock(),
		logger:      slog.Default(),
		queue:       newInputQueue(),
		held:        make(map[ir.KeyPos]string),
		tappingTerm: DefaultTappingTerm,
		settle:      DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.tappingTerm == 0 {
		return nil, &ConfigError{Code: ErrCodeInvalidTiming, Message: "tapping term must be positive"}
	}
	return e, nil
}

// Table returns the dance table the engine runs.
func (e *Engine) Table() *ir.DanceTable { return e.table }

// Dispatcher returns the engine's dispatcher.
func (e *Engine) Dispatcher() *Dispatcher { return e.dispatcher }

// TappingTerm returns the configured tapping window.
func (e *Engine) TappingTerm() ir.Millis { return e.tappingTerm }

// SettleDelay returns the configured settle delay.
func (e *Engine) SettleDelay() ir.Millis { return e.settle }

// Now returns the time the engine has advanced to.
func (e *Engine) Now() ir.Millis { return e.now }

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats { return e.stats }

// Slot returns a copy of the slot for id.
func (e *Engine) Slot(id ir.DanceKeyID) (SlotView, bool) {
	return e.registry.View(id)
}

// Idle reports whether no interaction is in progress on any slot and no
// macro key is held.
func (e *Engine) Idle() bool {
	return e.registry.Idle() && len(e.held) == 0
}

// Handle applies one input event. The engine first advances to ev.At, so
// windows that expired before the event finalize before it is counted.
// Timestamps must not go backwards; an event stamped before the current
// time is applied at the current time.
func (e *Engine) Handle(ev ir.InputEvent) {
	now := ev.At
	if e.stats.Inputs > 0 && ir.Before(now, e.now) {
		e.logger.Debug("input timestamp went backwards, holding time",
			"kind", ev.Kind, "key", ev.Key, "at", ev.At, "now", e.now)
		now = e.now
	}
	e.stats.Inputs++
	e.observeInput(ev, now)
	e.advance(now)

	switch ev.Kind {
	case ir.InputPress:
		e.press(ev)
	case ir.InputRelease:
		e.release(ev)
	case ir.InputTick:
	default:
		e.logger.Debug("ignoring input of unknown kind", "kind", ev.Kind, "at", ev.At)
	}
}

// Tick advances time without input. Hosts call it from their scan loop.
func (e *Engine) Tick(now ir.Millis) {
	e.Handle(ir.Tick(now))
}

// HandleAll applies events in order.
func (e *Engine) HandleAll(events []ir.InputEvent) {
	for _, ev := range events {
		e.Handle(ev)
	}
}

// Enqueue submits an event for the Run loop.
// Thread-safe. Returns false once the engine has been stopped.
func (e *Engine) Enqueue(ev ir.InputEvent) bool {
	return e.queue.Enqueue(ev)
}

// Run processes enqueued events until ctx is cancelled or Stop is called.
// Queued events are drained before Run returns after Stop.
//
// Must be called from exactly one goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "table", e.table.Name, "dances", len(e.table.Dances))

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.Handle(ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			// The signal channel is closed by Stop; drain before returning.
			if !open && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the input queue; Run returns after draining it.
func (e *Engine) Stop() {
	e.queue.Close()
}

// advance moves the engine clock to now, finalizing expired windows and
// resetting settled slots in ID order.
func (e *Engine) advance(now ir.Millis) {
	e.now = now
	for i := range e.registry.slots {
		s := &e.registry.slots[i]
		if s.phase == SlotWaiting && ir.Elapsed(now, s.lastPress) > e.tappingTerm {
			e.finalize(s)
		}
		e.settleIfDue(s)
	}
}

func (e *Engine) press(ev ir.InputEvent) {
	if ev.Macro != "" {
		e.pressMacro(ev)
		return
	}
	if ev.Dance == ir.NoDance {
		e.interruptAll(ir.NoDance)
		return
	}

	s, ok := e.registry.get(ev.Dance)
	if !ok {
		e.stats.Ignored++
		e.logger.Debug("ignoring press for unregistered dance",
			"dance", ev.Dance, "key", ev.Key, "at", ev.At)
		return
	}

	e.interruptAll(s.id)

	switch s.phase {
	case SlotWaiting:
		s.tap(ev.Key, e.now)
	case SlotReleasing:
		// Another physical key bound to the same dance; it joins the
		// finalized interaction and must be released before cleanup.
		s.hold(ev.Key)
	case SlotSettling:
		e.reset(s)
		s.start(ev.Key, e.now)
	default:
		s.start(ev.Key, e.now)
	}
}

func (e *Engine) release(ev ir.InputEvent) {
	if ev.Macro != "" {
		e.releaseMacro(ev)
		return
	}

	s, ok := e.registry.holding(ev.Key, ev.Dance)
	if !ok {
		if ev.Dance != ir.NoDance {
			if _, known := e.registry.get(ev.Dance); !known {
				e.stats.Ignored++
			}
			e.logger.Debug("release without matching press",
				"dance", ev.Dance, "key", ev.Key, "at", ev.At)
		}
		return
	}

	if !s.release(ev.Key) {
		return
	}
	if s.phase == SlotReleasing {
		s.phase = SlotSettling
		s.settleFrom = e.now
		e.settleIfDue(s)
	}
}

// pressMacro interrupts every open window, then runs the macro's begin
// effects. The macro stays held at ev.Key until that key is released.
func (e *Engine) pressMacro(ev ir.InputEvent) {
	if _, ok := e.table.MacroByName(ev.Macro); !ok {
		e.stats.Ignored++
		e.logger.Debug("ignoring press for unknown macro",
			"macro", ev.Macro, "key", ev.Key, "at", ev.At)
		return
	}
	if prev, down := e.held[ev.Key]; down {
		e.logger.Debug("macro key pressed twice without release",
			"macro", prev, "key", ev.Key, "at", ev.At)
		return
	}

	e.interruptAll(ir.NoDance)
	e.held[ev.Key] = ev.Macro
	e.stats.Macros++
	e.logger.Debug("macro pressed", "macro", ev.Macro, "key", ev.Key)
	e.emitMacro(ev.Macro, ir.PhaseBegin, e.dispatcher.OnMacroPress(ev.Macro))
}

// releaseMacro runs the end effects of the macro held at ev.Key.
func (e *Engine) releaseMacro(ev ir.InputEvent) {
	name, ok := e.held[ev.Key]
	if !ok {
		if _, known := e.table.MacroByName(ev.Macro); !known {
			e.stats.Ignored++
		}
		e.logger.Debug("release without matching macro press",
			"macro", ev.Macro, "key", ev.Key, "at", ev.At)
		return
	}
	delete(e.held, ev.Key)
	e.emitMacro(name, ir.PhaseEnd, e.dispatcher.OnMacroRelease(name))
}

// interruptAll finalizes every open window except the one for skip.
func (e *Engine) interruptAll(skip ir.DanceKeyID) {
	for i := range e.registry.slots {
		s := &e.registry.slots[i]
		if s.phase != SlotWaiting || s.id == skip {
			continue
		}
		s.state.Interrupted = true
		e.stats.Interrupts++
		e.finalize(s)
	}
}

func (e *Engine) finalize(s *slot) {
	s.category = Classify(s.state)
	e.stats.Finalized++

	name := e.danceName(s.id)
	e.logger.Debug("dance finalized",
		"dance", name, "category", s.category,
		"count", s.state.Count, "pressed", s.state.Pressed, "interrupted", s.state.Interrupted)
	e.observe(ir.TraceEntry{
		Kind:      ir.TraceClassify,
		Dance:     s.id,
		DanceName: name,
		Category:  s.category,
		State:     s.state,
	})

	e.emit(s, ir.PhaseBegin, e.dispatcher.OnFinalized(s.id, s.category))

	if s.state.Pressed {
		s.phase = SlotReleasing
		return
	}
	s.phase = SlotSettling
	s.settleFrom = e.now
	e.settleIfDue(s)
}

func (e *Engine) settleIfDue(s *slot) {
	if s.phase == SlotSettling && ir.Elapsed(e.now, s.settleFrom) >= e.settle {
		e.reset(s)
	}
}

func (e *Engine) reset(s *slot) {
	category := s.category
	e.emit(s, ir.PhaseEnd, e.dispatcher.OnReset(s.id, category))

	e.stats.Resets++
	e.observe(ir.TraceEntry{
		Kind:      ir.TraceReset,
		Dance:     s.id,
		DanceName: e.danceName(s.id),
		Category:  category,
	})
	s.clear()
}

func (e *Engine) emit(s *slot, phase ir.Phase, effects []ir.Effect) {
	name := e.danceName(s.id)
	for i := range effects {
		eff := effects[i]
		e.stats.Effects++
		e.observe(ir.TraceEntry{
			Kind:      ir.TraceEffect,
			Dance:     s.id,
			DanceName: name,
			Category:  s.category,
			Phase:     phase,
			Effect:    &eff,
		})
	}
}

func (e *Engine) emitMacro(name string, phase ir.Phase, effects []ir.Effect) {
	for i := range effects {
		eff := effects[i]
		e.stats.Effects++
		e.observe(ir.TraceEntry{
			Kind:      ir.TraceEffect,
			Dance:     ir.NoDance,
			DanceName: name,
			Phase:     phase,
			Effect:    &eff,
		})
	}
}

func (e *Engine) observeInput(ev ir.InputEvent, now ir.Millis) {
	in := ev
	entry := ir.TraceEntry{Kind: ir.TraceInput, Input: &in, Dance: ev.Dance}
	if ev.Kind != ir.InputTick && ev.Macro == "" {
		entry.DanceName = e.danceName(ev.Dance)
	}
	e.now = now
	e.observe(entry)
}

func (e *Engine) observe(entry ir.TraceEntry) {
	entry.Seq = e.clock.Next()
	entry.At = e.now
	if e.observer != nil {
		e.observer.Observe(entry)
	}
}

func (e *Engine) danceName(id ir.DanceKeyID) string {
	if d, ok := e.table.Lookup(id); ok {
		return d.Name
	}
	return ""
}
