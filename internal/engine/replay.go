package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tapdance/internal/ir"
)

// TraceReader reads recorded sessions. Implemented by store.Store.
type TraceReader interface {
	ReadSession(ctx context.Context, id string) (ir.Session, error)
	ReadTrace(ctx context.Context, id string) ([]ir.TraceEntry, error)
}

// ReplayResult is the outcome of re-running a recorded session.
type ReplayResult struct {
	Session  ir.Session
	Inputs   int
	Expected []ir.TraceEntry
	Actual   []ir.TraceEntry

	// Mismatch is the first divergence, or nil when the replay reproduced
	// the recording exactly.
	Mismatch *ReplayMismatchError
}

// Match reports whether the replay reproduced the recorded trace.
func (r *ReplayResult) Match() bool {
	return r.Mismatch == nil
}

// Err returns the mismatch as an error, or nil.
func (r *ReplayResult) Err() error {
	if r.Mismatch == nil {
		return nil
	}
	return r.Mismatch
}

// Replay re-runs the inputs of a recorded session through a fresh engine
// built from table and compares every produced entry with the recording.
//
// The session's tapping term and settle delay are used. Replay is
// structural: it runs the same Handle path as live input, so a mismatch
// means either the table or the engine changed behavior.
func Replay(ctx context.Context, r TraceReader, sessionID string, table *ir.DanceTable, opts ...Option) (*ReplayResult, error) {
	sess, err := r.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	hash, err := ir.TableHash(table)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if hash != sess.TableHash {
		return nil, &ConfigError{
			Code:    ErrCodeTableMismatch,
			Message: fmt.Sprintf("session %s was recorded with table %s (hash %.12s), got %s (hash %.12s)", sess.ID, sess.TableName, sess.TableHash, table.Name, hash),
		}
	}

	recorded, err := r.ReadTrace(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	buf := &TraceBuffer{}
	opts = append([]Option{
		WithTappingTerm(ir.Millis(sess.TappingTermMs)),
		WithSettleDelay(ir.Millis(sess.SettleMs)),
	}, opts...)
	opts = append(opts, WithObserver(buf))

	eng, err := New(table, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{Session: sess, Expected: recorded}
	for _, entry := range recorded {
		if entry.Kind != ir.TraceInput || entry.Input == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eng.Handle(*entry.Input)
		result.Inputs++
	}
	result.Actual = buf.Entries
	result.Mismatch = compareTraces(sess.ID, recorded, buf.Entries)
	return result, nil
}

func compareTraces(sessionID string, expected, actual []ir.TraceEntry) *ReplayMismatchError {
	n := max(len(expected), len(actual))
	for i := 0; i < n; i++ {
		var want, got string
		var seq int64
		if i < len(expected) {
			want = expected[i].String()
			seq = expected[i].Seq
		}
		if i < len(actual) {
			got = actual[i].String()
			seq = actual[i].Seq
		}
		if want != got {
			return &ReplayMismatchError{SessionID: sessionID, Seq: seq, Expected: want, Actual: got}
		}
	}
	return nil
}
