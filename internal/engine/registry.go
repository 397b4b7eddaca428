package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/tapdance/internal/ir"
)

// SlotPhase is the lifecycle position of one dance slot.
type SlotPhase uint8

const (
	// SlotIdle has no interaction in progress.
	SlotIdle SlotPhase = iota
	// SlotWaiting has an open tapping window: more taps may still count.
	SlotWaiting
	// SlotReleasing is finalized and waits for every physical key to go up.
	SlotReleasing
	// SlotSettling is finalized, released, and waits out the settle delay.
	SlotSettling
)

var slotPhaseNames = [...]string{
	SlotIdle:      "idle",
	SlotWaiting:   "waiting",
	SlotReleasing: "releasing",
	SlotSettling:  "settling",
}

func (p SlotPhase) String() string {
	if int(p) < len(slotPhaseNames) {
		return slotPhaseNames[p]
	}
	return fmt.Sprintf("SlotPhase(%d)", uint8(p))
}

// slot is the runtime record for one dance key. Only the engine goroutine
// touches slots.
type slot struct {
	id         ir.DanceKeyID
	phase      SlotPhase
	state      ir.DanceState
	category   ir.Category
	lastPress  ir.Millis
	settleFrom ir.Millis
	held       []ir.KeyPos
}

// SlotView is a read-only copy of a slot.
type SlotView struct {
	ID       ir.DanceKeyID
	Phase    SlotPhase
	State    ir.DanceState
	Category ir.Category
	Held     []ir.KeyPos
}

// Registry is the arena of dance slots, indexed by DanceKeyID.
// Slots share nothing; each one is owned by its index.
type Registry struct {
	slots []slot
}

// NewRegistry allocates n idle slots with IDs 0..n-1.
func NewRegistry(n int) (*Registry, error) {
	if n < 0 || n >= math.MaxUint16 {
		return nil, fmt.Errorf("registry size %d out of range", n)
	}
	r := &Registry{slots: make([]slot, n)}
	for i := range r.slots {
		r.slots[i].id = ir.DanceKeyID(i)
	}
	return r, nil
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// View returns a copy of the slot for id.
func (r *Registry) View(id ir.DanceKeyID) (SlotView, bool) {
	s, ok := r.get(id)
	if !ok {
		return SlotView{}, false
	}
	return SlotView{
		ID:       s.id,
		Phase:    s.phase,
		State:    s.state,
		Category: s.category,
		Held:     slices.Clone(s.held),
	}, true
}

// Idle reports whether every slot is idle.
func (r *Registry) Idle() bool {
	for i := range r.slots {
		if r.slots[i].phase != SlotIdle {
			return false
		}
	}
	return true
}

func (r *Registry) get(id ir.DanceKeyID) (*slot, bool) {
	if int(id) >= len(r.slots) {
		return nil, false
	}
	return &r.slots[id], true
}

// holding returns the slot that has key down, preferring hint.
func (r *Registry) holding(key ir.KeyPos, hint ir.DanceKeyID) (*slot, bool) {
	if s, ok := r.get(hint); ok && slices.Contains(s.held, key) {
		return s, true
	}
	for i := range r.slots {
		if slices.Contains(r.slots[i].held, key) {
			return &r.slots[i], true
		}
	}
	return nil, false
}

// start opens a new interaction: one press, held, not interrupted.
func (s *slot) start(key ir.KeyPos, now ir.Millis) {
	s.phase = SlotWaiting
	s.state = ir.DanceState{Count: 1, Pressed: true}
	s.category = ir.CategoryNone
	s.lastPress = now
	s.held = append(s.held[:0], key)
}

// tap counts another press inside the open window.
func (s *slot) tap(key ir.KeyPos, now ir.Millis) {
	if s.state.Count < math.MaxUint8 {
		s.state.Count++
	}
	s.state.Pressed = true
	s.lastPress = now
	s.hold(key)
}

func (s *slot) hold(key ir.KeyPos) {
	if !slices.Contains(s.held, key) {
		s.held = append(s.held, key)
	}
	s.state.Pressed = true
}

// release drops key and reports whether the slot has no keys down left.
func (s *slot) release(key ir.KeyPos) bool {
	if i := slices.Index(s.held, key); i >= 0 {
		s.held = slices.Delete(s.held, i, i+1)
	}
	if len(s.held) == 0 {
		s.state.Pressed = false
		return true
	}
	return false
}

// clear returns the slot to the idle zero state, keeping its ID.
func (s *slot) clear() {
	*s = slot{id: s.id, held: s.held[:0]}
}
