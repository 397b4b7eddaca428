package store

import (
	"context"
	"fmt"

	"github.com/roach88/tapdance/internal/ir"
)

const insertEntrySQL = `
		INSERT INTO trace_entries
		(id, session_id, seq, kind, at_ms, input_kind, key_pos, input_dance, input_at_ms, input_macro,
		 dance_id, dance_name, category, tap_count, pressed, interrupted, phase, effect)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
`

func (r entryRow) args() []any {
	return []any{
		r.ID, r.SessionID, r.Seq, r.Kind, r.AtMs,
		r.InputKind, r.KeyPos, r.InputDance, r.InputAtMs, r.InputMacro,
		r.DanceID, r.DanceName, r.Category, r.TapCount,
		r.Pressed, r.Interrupted, r.Phase, r.Effect,
	}
}

// CreateSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING; creating the same session twice is a no-op.
func (s *Store) CreateSession(ctx context.Context, sess ir.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("create session: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, table_name, table_hash, tapping_term_ms, settle_ms, engine_version, trace_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.TableName,
		sess.TableHash,
		sess.TappingTermMs,
		sess.SettleMs,
		sess.EngineVersion,
		sess.TraceVersion,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteEntry appends a trace entry to a session.
// The row ID is ir.EntryID, so rewriting an identical entry is a no-op.
// A different entry at an already-used seq violates UNIQUE(session_id, seq)
// and returns an error.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteEntry(ctx context.Context, sessionID string, e ir.TraceEntry) error {
	row, err := marshalEntry(sessionID, e)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertEntrySQL, row.args()...)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// WriteTrace appends entries in a single transaction.
func (s *Store) WriteTrace(ctx context.Context, sessionID string, entries []ir.TraceEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEntrySQL)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		row, err := marshalEntry(sessionID, e)
		if err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, row.args()...); err != nil {
			return fmt.Errorf("write trace: seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}
