// Package testutil holds deterministic helpers for driving the engine from
// scripts and tests.
package testutil

import (
	"sync"

	"github.com/roach88/tapdance/internal/ir"
)

// Timeline is a firmware millisecond cursor for building input scripts.
//
// Events can be placed at absolute times (At) or relative to the previous
// one (After). Time wraps like the host's 32-bit timer.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Timeline struct {
	mu     sync.Mutex
	now    ir.Millis
	events []ir.InputEvent
}

// NewTimeline creates a timeline starting at start.
func NewTimeline(start ir.Millis) *Timeline {
	return &Timeline{now: start}
}

// Now returns the cursor without moving it.
func (t *Timeline) Now() ir.Millis {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// At moves the cursor to an absolute time.
func (t *Timeline) At(at ir.Millis) *Timeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = at
	return t
}

// After moves the cursor forward by d.
func (t *Timeline) After(d ir.Millis) *Timeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now += d
	return t
}

// Press appends a press at the cursor.
func (t *Timeline) Press(key ir.KeyPos, dance ir.DanceKeyID) *Timeline {
	return t.add(ir.Press(key, dance, 0))
}

// Release appends a release at the cursor.
func (t *Timeline) Release(key ir.KeyPos, dance ir.DanceKeyID) *Timeline {
	return t.add(ir.Release(key, dance, 0))
}

// PressMacro appends a macro key press at the cursor.
func (t *Timeline) PressMacro(key ir.KeyPos, macro string) *Timeline {
	return t.add(ir.PressMacro(key, macro, 0))
}

// ReleaseMacro appends a macro key release at the cursor.
func (t *Timeline) ReleaseMacro(key ir.KeyPos, macro string) *Timeline {
	return t.add(ir.ReleaseMacro(key, macro, 0))
}

// Tick appends a tick at the cursor.
func (t *Timeline) Tick() *Timeline {
	return t.add(ir.Tick(0))
}

// Tap appends a press at the cursor and a release hold milliseconds later.
func (t *Timeline) Tap(key ir.KeyPos, dance ir.DanceKeyID, hold ir.Millis) *Timeline {
	t.Press(key, dance)
	t.After(hold)
	return t.Release(key, dance)
}

// Events returns a copy of the script so far.
func (t *Timeline) Events() []ir.InputEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ir.InputEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Reset drops all events and moves the cursor back to start.
func (t *Timeline) Reset(start ir.Millis) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = start
	t.events = t.events[:0]
}

func (t *Timeline) add(ev ir.InputEvent) *Timeline {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.At = t.now
	t.events = append(t.events, ev)
	return t
}
