package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tapdance/internal/ir"
)

// ErrSessionNotFound is returned when a session ID has no record.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo is a session plus the size of its recorded trace.
type SessionInfo struct {
	ir.Session
	Entries int64 `json:"entries"`
	Inputs  int64 `json:"inputs"`
}

const selectEntryColumns = `
	SELECT id, session_id, seq, kind, at_ms, input_kind, key_pos, input_dance, input_at_ms, input_macro,
	       dance_id, dance_name, category, tap_count, pressed, interrupted, phase, effect
	FROM trace_entries
`

// ReadSession retrieves a session by ID.
// Returns an error wrapping ErrSessionNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	var sess ir.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, table_name, table_hash, tapping_term_ms, settle_ms, engine_version, trace_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&sess.ID, &sess.TableName, &sess.TableHash, &sess.TappingTermMs,
		&sess.SettleMs, &sess.EngineVersion, &sess.TraceVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return ir.Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ReadTrace returns every entry of a session.
// Results are ordered by seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadTrace(ctx context.Context, sessionID string) ([]ir.TraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntryColumns+`
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	return scanEntries(rows)
}

// ReadTraceKind returns the entries of one kind, in seq order.
func (s *Store) ReadTraceKind(ctx context.Context, sessionID string, kind ir.TraceKind) ([]ir.TraceEntry, error) {
	return s.QueryTrace(ctx, TraceQuery{
		SessionID: sessionID,
		Filter:    Equals{Field: "kind", Value: string(kind)},
	})
}

// ReadInputs returns the input events of a session in the order the
// engine received them.
func (s *Store) ReadInputs(ctx context.Context, sessionID string) ([]ir.InputEvent, error) {
	entries, err := s.ReadTraceKind(ctx, sessionID, ir.TraceInput)
	if err != nil {
		return nil, err
	}
	inputs := make([]ir.InputEvent, 0, len(entries))
	for _, e := range entries {
		if e.Input != nil {
			inputs = append(inputs, *e.Input)
		}
	}
	return inputs, nil
}

// ListSessions returns all sessions ordered by ID. UUIDv7 IDs sort by
// creation time.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.table_name, s.table_hash, s.tapping_term_ms, s.settle_ms,
		       s.engine_version, s.trace_version,
		       COUNT(t.id),
		       COALESCE(SUM(CASE WHEN t.kind = 'input' THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN trace_entries t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(
			&info.ID, &info.TableName, &info.TableHash, &info.TappingTermMs, &info.SettleMs,
			&info.EngineVersion, &info.TraceVersion, &info.Entries, &info.Inputs,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanEntries(rows *sql.Rows) ([]ir.TraceEntry, error) {
	defer rows.Close()

	entries := []ir.TraceEntry{}
	for rows.Next() {
		var r entryRow
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.Seq, &r.Kind, &r.AtMs,
			&r.InputKind, &r.KeyPos, &r.InputDance, &r.InputAtMs, &r.InputMacro,
			&r.DanceID, &r.DanceName, &r.Category, &r.TapCount,
			&r.Pressed, &r.Interrupted, &r.Phase, &r.Effect,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e, err := unmarshalEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
