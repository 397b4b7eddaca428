package engine

import "github.com/roach88/tapdance/internal/ir"

// Classify maps the state of a finalized interaction to its category.
//
// Interruption only matters for a single press that is still down (which
// stays a tap) and for two presses (DOUBLE_SINGLE_TAP). A state with no
// presses is NONE.
func Classify(s ir.DanceState) ir.Category {
	switch {
	case s.Count == 0:
		return ir.CategoryNone
	case s.Count == 1:
		if s.Pressed && !s.Interrupted {
			return ir.SingleHold
		}
		return ir.SingleTap
	case s.Count == 2:
		if s.Interrupted {
			return ir.DoubleSingleTap
		}
		if s.Pressed {
			return ir.DoubleHold
		}
		return ir.DoubleTap
	case s.Count == 3:
		if s.Pressed {
			return ir.TripleHold
		}
		return ir.TripleTap
	default:
		return ir.MoreTaps
	}
}
