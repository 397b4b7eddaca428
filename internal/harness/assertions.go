package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/tapdance/internal/host"
	"github.com/roach88/tapdance/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []ir.TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Inputs and classifications are enough to follow what happened.
	fmt.Fprintf(&buf, "\nTrace:\n")
	for _, entry := range e.Trace {
		if entry.Kind == ir.TraceInput || entry.Kind == ir.TraceClassify {
			fmt.Fprintf(&buf, "  %s\n", entry)
		}
	}

	return buf.String()
}

// assertClassified checks the finalized categories, in order.
func assertClassified(result *Result, a Assertion) error {
	got := result.Classified(a.Dance)
	want := make([]ir.Category, len(a.Categories))
	for i, name := range a.Categories {
		c, err := ir.ParseCategory(name)
		if err != nil {
			return err
		}
		want[i] = c
	}

	if slices.Equal(got, want) {
		return nil
	}
	label := "categories"
	if a.Dance != "" {
		label = a.Dance + " categories"
	}
	return &AssertionError{
		Type:     AssertClassified,
		Expected: fmt.Sprintf("%s %s", label, formatCategories(want)),
		Actual:   formatCategories(got),
		Trace:    result.Trace,
	}
}

// assertEffects checks every effect sent to the host, in order. Expected
// effects may name layers of the result's table.
func assertEffects(result *Result, a Assertion) error {
	want := make([]ir.Effect, len(a.Effects))
	for i, s := range a.Effects {
		e, err := parseEffect(result.table, s)
		if err != nil {
			return fmt.Errorf("effects[%d]: %w", i, err)
		}
		want[i] = e
	}

	got := result.Effects()
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEffects,
		Expected: formatEffects(result.table, want),
		Actual:   formatEffects(result.table, got),
		Trace:    result.Trace,
	}
}

// assertEffectCount checks the number of effects sent to the host.
func assertEffectCount(result *Result, a Assertion) error {
	got := len(result.Effects())
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEffectCount,
		Expected: fmt.Sprintf("%d effects", *a.Count),
		Actual:   fmt.Sprintf("%d effects", got),
		Trace:    result.Trace,
	}
}

// assertBalanced checks that the host ended with nothing down and no
// layers on.
func assertBalanced(result *Result, a Assertion) error {
	balanced := result.Final.Equal(host.State{})
	if balanced == a.want() {
		return nil
	}
	return &AssertionError{
		Type:     AssertBalanced,
		Expected: fmt.Sprintf("balanced=%t", a.want()),
		Actual:   fmt.Sprintf("keys %s, layers %s", formatKeys(result.Final.Keys), formatLayerMask(result.table, result.Final.Layers)),
		Trace:    result.Trace,
	}
}

// assertIdle checks that every slot returned to idle.
func assertIdle(result *Result, a Assertion) error {
	if result.Idle == a.want() {
		return nil
	}
	return &AssertionError{
		Type:     AssertIdle,
		Expected: fmt.Sprintf("idle=%t", a.want()),
		Actual:   fmt.Sprintf("idle=%t", result.Idle),
		Trace:    result.Trace,
	}
}

// assertLayers checks the exact set of active host layers.
func assertLayers(result *Result, a Assertion) error {
	var want uint32
	for _, name := range a.Layers {
		l, err := parseLayer(result.table, name)
		if err != nil {
			return err
		}
		want |= 1 << l
	}
	if result.Final.Layers == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertLayers,
		Expected: formatLayerMask(result.table, want),
		Actual:   formatLayerMask(result.table, result.Final.Layers),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertClassified:
			err = assertClassified(result, a)
		case AssertEffects:
			err = assertEffects(result, a)
		case AssertEffectCount:
			err = assertEffectCount(result, a)
		case AssertBalanced:
			err = assertBalanced(result, a)
		case AssertIdle:
			err = assertIdle(result, a)
		case AssertLayers:
			err = assertLayers(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return errs
}

func parseEffect(table *ir.DanceTable, s string) (ir.Effect, error) {
	if table == nil {
		return ir.ParseEffect(s)
	}
	return table.ParseEffect(s)
}

func parseLayer(table *ir.DanceTable, s string) (ir.Layer, error) {
	if table != nil {
		if l, ok := table.LayerIndex(s); ok {
			return l, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= ir.MaxLayers {
		return 0, fmt.Errorf("unknown layer %q", s)
	}
	return ir.Layer(n), nil
}

func formatCategories(cats []ir.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func formatEffects(table *ir.DanceTable, effects []ir.Effect) string {
	parts := make([]string, len(effects))
	for i, e := range effects {
		if table != nil {
			parts[i] = table.FormatEffect(e)
		} else {
			parts[i] = e.String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatKeys(keys []ir.Keycode) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func formatLayerMask(table *ir.DanceTable, mask uint32) string {
	var names []string
	for l := 0; l < ir.MaxLayers; l++ {
		if mask&(1<<l) == 0 {
			continue
		}
		if table != nil {
			names = append(names, table.LayerName(ir.Layer(l)))
		} else {
			names = append(names, strconv.Itoa(l))
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
