package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/host"
	"github.com/roach88/tapdance/internal/ir"
	"github.com/roach88/tapdance/internal/keymap"
	"github.com/roach88/tapdance/internal/store"
	"github.com/roach88/tapdance/internal/testutil"
)

// Options configure a scenario execution. The zero value runs against a
// fresh in-memory store with a session ID derived from the scenario name.
type Options struct {
	// Store records the session. If nil, an in-memory store is opened and
	// closed for the run.
	Store *store.Store

	// Sessions generates the session ID.
	Sessions engine.SessionIDGenerator

	// Table overrides the scenario's keymap reference.
	Table *ir.DanceTable

	Logger *slog.Logger
}

// Harness runs one scenario against a real engine and host.
type Harness struct {
	scenario *Scenario
	table    *ir.DanceTable
	store    *store.Store
	sessions engine.SessionIDGenerator
	logger   *slog.Logger
}

// Run executes a scenario, checks that its recorded trace replays
// identically, and evaluates its assertions.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed session ID so traces are reproducible.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(context.Background(), scenario, Options{})
}

// RunWithOptions is Run with explicit options.
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	result, err := Execute(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// Execute runs the scenario's events without evaluating assertions.
// The replay check still runs.
func Execute(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	table := opts.Table
	if table == nil {
		var err error
		table, err = keymap.Resolve(scenario.Keymap, scenario.baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load keymap %q: %w", scenario.Keymap, err)
		}
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = testutil.NewFixedSessionGenerator("scenario:" + scenario.Name)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Harness{
		scenario: scenario,
		table:    table,
		store:    st,
		sessions: sessions,
		logger:   logger,
	}
	return h.execute(ctx)
}

func (h *Harness) execute(ctx context.Context) (*Result, error) {
	events, err := BuildEvents(h.table, h.scenario.Events)
	if err != nil {
		return nil, err
	}

	term := engine.DefaultTappingTerm
	if h.scenario.TappingTermMs != nil {
		term = ir.Millis(*h.scenario.TappingTermMs)
	}
	settle := engine.DefaultSettleDelay
	if h.scenario.SettleMs != nil {
		settle = ir.Millis(*h.scenario.SettleMs)
	}

	hash, err := ir.TableHash(h.table)
	if err != nil {
		return nil, err
	}
	session := ir.Session{
		ID:            h.sessions.Generate(),
		TableName:     h.table.Name,
		TableHash:     hash,
		TappingTermMs: uint32(term),
		SettleMs:      uint32(settle),
		EngineVersion: ir.EngineVersion,
		TraceVersion:  ir.TraceVersion,
	}
	rec, err := store.NewRecorder(ctx, h.store, session)
	if err != nil {
		return nil, err
	}
	rec.SetLogger(h.logger)

	kb := host.New()
	trace := &engine.TraceBuffer{}
	eng, err := engine.New(h.table, kb,
		engine.WithTappingTerm(term),
		engine.WithSettleDelay(settle),
		engine.WithLogger(h.logger),
		engine.WithObserver(trace),
		engine.WithObserver(rec),
	)
	if err != nil {
		return nil, err
	}

	eng.HandleAll(events)
	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	result := NewResult()
	result.Trace = trace.Entries
	result.Final = kb.Snapshot()
	result.Idle = eng.Idle()
	result.Stats = eng.Stats()
	result.Session = session
	result.table = h.table

	replay, err := engine.Replay(ctx, h.store, session.ID, h.table, engine.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to replay session: %w", err)
	}
	if !replay.Match() {
		result.AddError(replay.Err().Error())
	}

	h.logger.Info("scenario executed",
		"scenario", h.scenario.Name,
		"session", session.ID,
		"inputs", len(events),
		"entries", len(result.Trace),
		"effects", result.Stats.Effects,
	)
	return result, nil
}

// BuildEvents turns scripted steps into input events for table.
func BuildEvents(table *ir.DanceTable, steps []Step) ([]ir.InputEvent, error) {
	tl := testutil.NewTimeline(0)
	for i, step := range steps {
		switch {
		case step.At != nil:
			tl.At(ir.Millis(*step.At))
		case step.After != nil:
			tl.After(ir.Millis(*step.After))
		}

		if step.Kind() == ir.InputTick {
			tl.Tick()
			continue
		}

		pos := ir.KeyPos(step.Pos)
		if pos == "" {
			pos = ir.KeyPos(step.Key())
		}
		if _, isDance := table.ByName(step.Key()); !isDance {
			if m, ok := table.MacroByName(step.Key()); ok {
				if step.Kind() == ir.InputPress {
					tl.PressMacro(pos, m.Name)
				} else {
					tl.ReleaseMacro(pos, m.Name)
				}
				continue
			}
		}

		dance, err := ResolveKey(table, step.Key())
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		if step.Kind() == ir.InputPress {
			tl.Press(pos, dance)
		} else {
			tl.Release(pos, dance)
		}
	}
	return tl.Events(), nil
}

// ResolveKey maps a scripted key name to a dance ID. Dance names win; a
// keycode name that is not a dance is a plain key (ir.NoDance). Macro
// names are resolved by BuildEvents before this is called.
func ResolveKey(table *ir.DanceTable, name string) (ir.DanceKeyID, error) {
	if d, ok := table.ByName(name); ok {
		return d.ID, nil
	}
	if _, err := ir.ParseKeycode(name); err == nil {
		return ir.NoDance, nil
	}
	return 0, fmt.Errorf("unknown key %q: not a dance in %q and not a keycode", name, table.Name)
}
