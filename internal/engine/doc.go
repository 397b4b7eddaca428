// Package engine implements the tap-dance disambiguation engine.
//
// The engine receives physical press/release events and timer ticks, keeps
// one slot per configured dance key, classifies each completed interaction
// into a Category and drives the host through a Sink with the begin and end
// effects the DanceTable binds to that category.
//
// ARCHITECTURE:
//
// Single-Writer State Machine:
// All slot mutation happens on one goroutine. Embedded hosts call Handle
// and Tick directly from their scan loop; hosts that produce input on
// several goroutines use Enqueue and a single Run loop instead.
//
// Event Processing Flow:
//  1. Every input first advances the engine clock to its timestamp, which
//     finalizes expired windows and resets settled slots in DanceKeyID order
//  2. A press interrupts and finalizes every other open window, then starts
//     or extends the pressed key's interaction
//  3. A release clears the physical key from its slot; a finalized slot with
//     no keys down starts settling
//  4. Finalization runs the category's begin effects; reset runs its end
//     effects and returns the slot to idle
//
// Slot lifecycle:
//
//	IDLE -> WAITING -> RELEASING -> SETTLING -> IDLE
//	           ^  |                    ^
//	           +--+ (tap)              | (finalized with no key down)
//	           +-----------------------+
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every trace entry is stamped with a monotonic seq from Clock.Next().
// Firmware milliseconds only drive the timing windows, never ordering.
//
// Deterministic Scheduling:
// Slots are scanned in DanceKeyID order. The same input sequence always
// produces the same classifications, effects and trace.
package engine
