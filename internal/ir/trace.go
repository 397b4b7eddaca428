package ir

import (
	"fmt"
	"strings"
)

// TraceKind distinguishes trace entries.
type TraceKind string

const (
	// TraceInput records an input event as the engine received it.
	TraceInput TraceKind = "input"
	// TraceClassify records a finalization and its category.
	TraceClassify TraceKind = "classify"
	// TraceEffect records one effect sent to the host.
	TraceEffect TraceKind = "effect"
	// TraceReset records a slot returning to idle.
	TraceReset TraceKind = "reset"
)

// Phase tells whether an effect came from an action's Begin or End list.
type Phase string

const (
	PhaseBegin Phase = "begin"
	PhaseEnd   Phase = "end"
)

// TraceEntry is one observation emitted by the engine. Seq is the logical
// clock value and is the only ordering key; At is the firmware time the
// engine had advanced to when the entry was produced.
//
// Which fields are set depends on Kind:
//   - input: Input
//   - classify: Dance, DanceName, Category, State
//   - effect: Dance, DanceName, Category, Phase, Effect
//   - reset: Dance, DanceName, Category
//
// Effects of a macro key carry Dance NoDance, the macro name as DanceName
// and Category NONE.
type TraceEntry struct {
	Seq       int64       `json:"seq"`
	Kind      TraceKind   `json:"kind"`
	At        Millis      `json:"at"`
	Input     *InputEvent `json:"input,omitempty"`
	Dance     DanceKeyID  `json:"dance"`
	DanceName string      `json:"dance_name,omitempty"`
	Category  Category    `json:"category,omitempty"`
	State     DanceState  `json:"state"`
	Phase     Phase       `json:"phase,omitempty"`
	Effect    *Effect     `json:"effect,omitempty"`
}

// String renders the entry as one line of a human-readable trace.
func (e TraceEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d @%d %s", e.Seq, e.At, e.Kind)
	switch e.Kind {
	case TraceInput:
		if e.Input != nil {
			fmt.Fprintf(&b, " %s", e.Input.Kind)
			switch {
			case e.Input.Kind == InputTick:
			case e.Input.Macro != "":
				fmt.Fprintf(&b, " %s macro=%s", e.Input.Key, e.Input.Macro)
			default:
				fmt.Fprintf(&b, " %s dance=%s", e.Input.Key, e.Input.Dance)
			}
		}
	case TraceClassify:
		fmt.Fprintf(&b, " %s %s count=%d pressed=%t interrupted=%t",
			e.danceLabel(), e.Category, e.State.Count, e.State.Pressed, e.State.Interrupted)
	case TraceEffect:
		fmt.Fprintf(&b, " %s %s %s", e.danceLabel(), e.Phase, e.effectString())
	case TraceReset:
		fmt.Fprintf(&b, " %s %s", e.danceLabel(), e.Category)
	}
	return b.String()
}

func (e TraceEntry) danceLabel() string {
	if e.DanceName != "" {
		return e.DanceName
	}
	return "dance=" + e.Dance.String()
}

func (e TraceEntry) effectString() string {
	if e.Effect == nil {
		return "-"
	}
	return e.Effect.String()
}

// FormatTrace renders entries one per line, each terminated by a newline.
func FormatTrace(entries []TraceEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Session describes one recorded engine run.
type Session struct {
	ID            string `json:"id"`
	TableName     string `json:"table_name"`
	TableHash     string `json:"table_hash"`
	TappingTermMs uint32 `json:"tapping_term_ms"`
	SettleMs      uint32 `json:"settle_ms"`
	EngineVersion string `json:"engine_version"`
	TraceVersion  string `json:"trace_version"`
}
