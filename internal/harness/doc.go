// Package harness runs scripted key sequences through the engine and checks
// the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: double_tap_mins
//	description: "Two quick taps send Ctrl+-"
//	keymap: builtin:sofle
//	tapping_term_ms: 200   # optional
//	settle_ms: 10          # optional
//	events:
//	  - {at: 0, press: MINS}
//	  - {after: 40, release: MINS}
//	  - {at: 400, tick: true}
//	assertions:
//	  - type: classified
//	    categories: [DOUBLE_TAP]
//	  - type: effects
//	    effects: ["down KC_LCTL", "down KC_MINS", "up KC_MINS", "up KC_LCTL"]
//	  - type: balanced
//
// Key names in events are dance names from the keymap. A name that is not a
// dance but parses as a keycode is a plain key bound to no dance.
//
// # Assertion Types
//
//   - classified: finalized categories in order, optionally for one dance
//   - effects: every effect sent to the host, in order
//   - effect_count: number of effects sent to the host
//   - balanced: host ends with no keys down and no layers on (want: false to invert)
//   - idle: every slot ends idle (want: false to invert)
//   - layers: exact set of layers active at the end
//
// # Deterministic Testing
//
// Every run records its trace to a store (in-memory unless one is given)
// under a fixed session ID, then replays the recording through a fresh
// engine. A replay that does not reproduce the trace fails the scenario.
// Golden files hold the text trace produced by GoldenTrace.
package harness
