package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tapdance/internal/ir"
)

// Validation codes. Errors (E1xx) make a table unusable; warnings (W2xx)
// flag tables the engine will still run as written.
const (
	ErrNoDances        = "E101" // table has no dances
	ErrDanceNameEmpty  = "E102" // dance name is required
	ErrDuplicateDance  = "E103" // two dances share a name
	ErrSparseIDs       = "E104" // dance IDs are not 0..n-1 in order
	ErrInvalidCategory = "E105" // action bound to an undeclared category
	ErrInvalidKeycode  = "E106" // KC_NO or a keycode outside the modelled set
	ErrLayerOutOfRange = "E107" // layer index beyond the host layer mask
	ErrInvalidEffect   = "E108" // effect kind not recognized
	ErrTableNameEmpty  = "E109" // table name is required
	ErrMacroNameEmpty  = "E110" // macro name is required
	ErrDuplicateMacro  = "E111" // macro name repeats a macro or dance name

	WarnKeysLeftDown    = "W201" // begin+end leaves keys registered
	WarnLayersChanged   = "W202" // begin+end leaves layer state changed
	WarnNotReverseOrder = "W203" // end is balanced but not begin reversed
	WarnUnpairedRelease = "W204" // end releases something begin never pressed
	WarnUnreachable     = "W205" // category can never be classified, or dance binds nothing
	WarnUndeclaredLayer = "W206" // layer index has no declared name
)

// Severity distinguishes blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding about a table.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the finding is advisory.
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []ValidationError) bool {
	return slices.ContainsFunc(findings, func(e ValidationError) bool {
		return e.Severity == SeverityError
	})
}

// Errors returns the findings with error severity.
func Errors(findings []ValidationError) []ValidationError {
	return filterSeverity(findings, SeverityError)
}

// Warnings returns the findings with warning severity.
func Warnings(findings []ValidationError) []ValidationError {
	return filterSeverity(findings, SeverityWarning)
}

func filterSeverity(findings []ValidationError, s Severity) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks a table and returns every finding (it does not stop at
// the first). Findings are ordered by dance, then category.
func Validate(t *ir.DanceTable) []ValidationError {
	var out []ValidationError
	addErr := func(field, code, format string, args ...any) {
		out = append(out, ValidationError{Field: field, Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(t.Name) == "" {
		addErr("name", ErrTableNameEmpty, "table name is required")
	}
	if len(t.Dances) == 0 {
		addErr("dances", ErrNoDances, "at least one dance is required")
	}

	names := make(map[string]int)
	for i, d := range t.Dances {
		field := fmt.Sprintf("dances[%d]", i)
		if d.Name != "" {
			field = "dance." + d.Name
		}

		if strings.TrimSpace(d.Name) == "" {
			addErr(field, ErrDanceNameEmpty, "dance name is required")
		} else if first, dup := names[d.Name]; dup {
			addErr(field, ErrDuplicateDance, "duplicate dance name %q (first at index %d)", d.Name, first)
		} else {
			names[d.Name] = i
		}

		if int(d.ID) != i {
			addErr(field, ErrSparseIDs, "dance at index %d has id %d", i, d.ID)
		}

		out = append(out, validateDance(t, field, d)...)
	}

	macros := make(map[string]int)
	for i, m := range t.Macros {
		field := fmt.Sprintf("macros[%d]", i)
		if m.Name != "" {
			field = "macro." + m.Name
		}

		switch _, dance := names[m.Name]; {
		case strings.TrimSpace(m.Name) == "":
			addErr(field, ErrMacroNameEmpty, "macro name is required")
		case dance:
			addErr(field, ErrDuplicateMacro, "macro name %q is also a dance", m.Name)
		default:
			if first, dup := macros[m.Name]; dup {
				addErr(field, ErrDuplicateMacro, "duplicate macro name %q (first at index %d)", m.Name, first)
			} else {
				macros[m.Name] = i
			}
		}

		if m.Action.IsEmpty() {
			out = append(out, ValidationError{Field: field, Code: WarnUnreachable, Severity: SeverityWarning, Message: "macro performs no effects"})
			continue
		}
		out = append(out, validateAction(t, field, m.Action)...)
	}
	return out
}

func validateDance(t *ir.DanceTable, field string, d ir.Dance) []ValidationError {
	var out []ValidationError
	add := func(f, code string, sev Severity, format string, args ...any) {
		out = append(out, ValidationError{Field: f, Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if len(d.Actions) == 0 {
		add(field, WarnUnreachable, SeverityWarning, "dance binds no categories")
		return out
	}

	// Unknown categories first, then declared ones in Category order.
	var invalid []ir.Category
	for c := range d.Actions {
		if !c.Valid() {
			invalid = append(invalid, c)
		}
	}
	slices.Sort(invalid)
	for _, c := range invalid {
		add(field, ErrInvalidCategory, SeverityError, "category %d is not declared", uint8(c))
	}

	for _, c := range d.Categories() {
		f := field + "." + c.String()
		a := d.Actions[c]

		if c == ir.CategoryNone || c == ir.CategoryUnknown {
			add(f, WarnUnreachable, SeverityWarning, "category %s is never classified", c)
		}

		out = append(out, validateAction(t, f, a)...)
	}
	return out
}

// validateAction checks every effect of a, then its balance when all
// effects are usable.
func validateAction(t *ir.DanceTable, field string, a ir.Action) []ValidationError {
	var out []ValidationError
	add := func(f, code string, sev Severity, format string, args ...any) {
		out = append(out, ValidationError{Field: f, Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	effectsOK := true
	for _, list := range []struct {
		phase   ir.Phase
		effects []ir.Effect
	}{{ir.PhaseBegin, a.Begin}, {ir.PhaseEnd, a.End}} {
		for i, e := range list.effects {
			ef := fmt.Sprintf("%s.%s[%d]", field, list.phase, i)
			switch {
			case e.Kind.IsKey():
				if e.Code == ir.KC_NO || !e.Code.Known() {
					add(ef, ErrInvalidKeycode, SeverityError, "keycode %s is not usable", e.Code)
					effectsOK = false
				}
			case e.Kind == ir.EffectLayerOn || e.Kind == ir.EffectLayerOff:
				if int(e.Layer) >= ir.MaxLayers {
					add(ef, ErrLayerOutOfRange, SeverityError, "layer %d out of range 0-%d", e.Layer, ir.MaxLayers-1)
					effectsOK = false
				} else if len(t.Layers) > 0 && int(e.Layer) >= len(t.Layers) {
					add(ef, WarnUndeclaredLayer, SeverityWarning, "layer %d has no declared name", e.Layer)
				}
			default:
				add(ef, ErrInvalidEffect, SeverityError, "unknown effect kind %d", uint8(e.Kind))
				effectsOK = false
			}
		}
	}
	if effectsOK {
		out = append(out, checkBalance(t, field, a)...)
	}
	return out
}

// checkBalance compares what begin presses against what end releases.
func checkBalance(t *ir.DanceTable, field string, a ir.Action) []ValidationError {
	var out []ValidationError
	warn := func(code, format string, args ...any) {
		out = append(out, ValidationError{Field: field, Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
	}

	// Keys: registered after begin+end if the last call on them was a down.
	lastKey := make(map[ir.Keycode]ir.EffectKind)
	var keyOrder []ir.Keycode
	// Layers: changed if the last call differs from the state before the
	// first call, which is the inverse of that first call.
	firstLayer := make(map[ir.Layer]ir.EffectKind)
	lastLayer := make(map[ir.Layer]ir.EffectKind)
	var layerOrder []ir.Layer

	for _, e := range slices.Concat(a.Begin, a.End) {
		if e.Kind.IsKey() {
			if _, seen := lastKey[e.Code]; !seen {
				keyOrder = append(keyOrder, e.Code)
			}
			lastKey[e.Code] = e.Kind
			continue
		}
		if _, seen := firstLayer[e.Layer]; !seen {
			firstLayer[e.Layer] = e.Kind
			layerOrder = append(layerOrder, e.Layer)
		}
		lastLayer[e.Layer] = e.Kind
	}

	var leftDown []string
	for _, kc := range keyOrder {
		if lastKey[kc] == ir.EffectKeyDown {
			leftDown = append(leftDown, kc.String())
		}
	}
	if len(leftDown) > 0 {
		warn(WarnKeysLeftDown, "keys left registered after end: %s", strings.Join(leftDown, ", "))
	}

	var changed []string
	for _, l := range layerOrder {
		if firstLayer[l] == lastLayer[l] {
			changed = append(changed, t.FormatEffect(ir.Effect{Kind: lastLayer[l], Layer: l}))
		}
	}
	if len(changed) > 0 {
		warn(WarnLayersChanged, "layer state not restored after end: %s", strings.Join(changed, ", "))
	}

	var unpaired []string
	for _, e := range a.End {
		if e.Kind != ir.EffectKeyUp && e.Kind != ir.EffectLayerOff {
			continue
		}
		if !slices.Contains(a.Begin, e.Inverse()) {
			unpaired = append(unpaired, t.FormatEffect(e))
		}
	}
	if len(unpaired) > 0 {
		warn(WarnUnpairedRelease, "end releases what begin never pressed: %s", strings.Join(unpaired, ", "))
	}

	if len(out) == 0 && len(a.End) > 0 && !slices.Equal(a.End, Unwind(a.Begin)) {
		warn(WarnNotReverseOrder, "end order %q is not the reverse of begin (want %q)",
			ir.FormatEffects(a.End), ir.FormatEffects(Unwind(a.Begin)))
	}
	return out
}

// Unwind returns the effects that undo begin, in reverse order.
func Unwind(begin []ir.Effect) []ir.Effect {
	out := make([]ir.Effect, 0, len(begin))
	for i := len(begin) - 1; i >= 0; i-- {
		out = append(out, begin[i].Inverse())
	}
	return out
}
