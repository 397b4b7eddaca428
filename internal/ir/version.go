package ir

// Version constants for the trace schema and engine.
const (
	// TraceVersion is the version of the recorded trace format.
	TraceVersion = "1"

	// EngineVersion is the tapdance engine version.
	EngineVersion = "0.1.0"
)
