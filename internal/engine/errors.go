package engine

import (
	"errors"
	"fmt"
)

// ConfigError reports an engine that cannot be built from its inputs.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Dance names the offending dance, when there is one.
	Dance string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeNilTable indicates New was called without a dance table.
	ErrCodeNilTable ConfigErrorCode = "NIL_TABLE"

	// ErrCodeSparseIDs indicates dance IDs are not exactly 0..n-1 in order.
	ErrCodeSparseIDs ConfigErrorCode = "SPARSE_IDS"

	// ErrCodeInvalidTiming indicates a zero tapping term.
	ErrCodeInvalidTiming ConfigErrorCode = "INVALID_TIMING"

	// ErrCodeTableMismatch indicates a replay against a table whose hash
	// differs from the one the session was recorded with.
	ErrCodeTableMismatch ConfigErrorCode = "TABLE_MISMATCH"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Dance != "" {
		return fmt.Sprintf("%s: %s (dance=%s)", e.Code, e.Message, e.Dance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is a ConfigError with the given code.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// ReplayMismatchError reports a replay whose output diverged from the
// recorded session.
type ReplayMismatchError struct {
	SessionID string
	Seq       int64
	Expected  string
	Actual    string
}

func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay of session %s diverged at seq %d: expected %q, got %q",
		e.SessionID, e.Seq, e.Expected, e.Actual)
}

// IsReplayMismatch reports whether err is a ReplayMismatchError.
func IsReplayMismatch(err error) bool {
	var me *ReplayMismatchError
	return errors.As(err, &me)
}
