package harness

import (
	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/host"
	"github.com/roach88/tapdance/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match and the run replays identically.
	Pass bool `json:"pass"`

	// Trace contains every entry the engine produced, in seq order.
	Trace []ir.TraceEntry `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the host's key and layer state after the last event.
	Final host.State `json:"final"`

	// Idle reports whether every slot was idle after the last event.
	Idle bool `json:"idle"`

	Stats   engine.Stats `json:"stats"`
	Session ir.Session   `json:"session"`

	table *ir.DanceTable
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Effects returns the effects sent to the host, in order.
func (r *Result) Effects() []ir.Effect {
	var out []ir.Effect
	for _, e := range r.Trace {
		if e.Kind == ir.TraceEffect && e.Effect != nil {
			out = append(out, *e.Effect)
		}
	}
	return out
}

// Classified returns the finalized categories in order. A non-empty dance
// name keeps only that dance.
func (r *Result) Classified(dance string) []ir.Category {
	var out []ir.Category
	for _, e := range r.Trace {
		if e.Kind != ir.TraceClassify {
			continue
		}
		if dance != "" && e.DanceName != dance {
			continue
		}
		out = append(out, e.Category)
	}
	return out
}

// Table returns the table the scenario ran against.
func (r *Result) Table() *ir.DanceTable {
	return r.table
}
