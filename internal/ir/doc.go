// Package ir provides the shared representation types for tapdance.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Dance tables are immutable once built
//   - Times are firmware milliseconds (Millis) with wrap-safe arithmetic
//   - Trace ordering uses the logical seq counter, never wall-clock time
//   - All JSON tags use snake_case; enums serialize as their QMK-style names
package ir
