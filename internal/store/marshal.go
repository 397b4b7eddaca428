package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/tapdance/internal/ir"
)

// entryRow is the column form of an ir.TraceEntry. Input and effect
// columns are NULL for entries that don't carry them.
type entryRow struct {
	ID          string
	SessionID   string
	Seq         int64
	Kind        string
	AtMs        int64
	InputKind   sql.NullString
	KeyPos      sql.NullString
	InputDance  sql.NullInt64
	InputAtMs   sql.NullInt64
	InputMacro  sql.NullString
	DanceID     int64
	DanceName   string
	Category    string
	TapCount    int64
	Pressed     bool
	Interrupted bool
	Phase       string
	Effect      sql.NullString
}

func marshalEntry(sessionID string, e ir.TraceEntry) (entryRow, error) {
	id, err := ir.EntryID(sessionID, e)
	if err != nil {
		return entryRow{}, err
	}
	row := entryRow{
		ID:          id,
		SessionID:   sessionID,
		Seq:         e.Seq,
		Kind:        string(e.Kind),
		AtMs:        int64(e.At),
		DanceID:     int64(e.Dance),
		DanceName:   e.DanceName,
		Category:    e.Category.String(),
		TapCount:    int64(e.State.Count),
		Pressed:     e.State.Pressed,
		Interrupted: e.State.Interrupted,
		Phase:       string(e.Phase),
	}
	if in := e.Input; in != nil {
		row.InputKind = sql.NullString{String: in.Kind.String(), Valid: true}
		row.KeyPos = sql.NullString{String: string(in.Key), Valid: true}
		row.InputDance = sql.NullInt64{Int64: int64(in.Dance), Valid: true}
		row.InputAtMs = sql.NullInt64{Int64: int64(in.At), Valid: true}
		row.InputMacro = sql.NullString{String: in.Macro, Valid: in.Macro != ""}
	}
	if e.Effect != nil {
		row.Effect = sql.NullString{String: e.Effect.String(), Valid: true}
	}
	return row, nil
}

func unmarshalEntry(row entryRow) (ir.TraceEntry, error) {
	cat, err := ir.ParseCategory(row.Category)
	if err != nil {
		return ir.TraceEntry{}, fmt.Errorf("unmarshal entry %d: %w", row.Seq, err)
	}
	e := ir.TraceEntry{
		Seq:       row.Seq,
		Kind:      ir.TraceKind(row.Kind),
		At:        ir.Millis(row.AtMs),
		Dance:     ir.DanceKeyID(row.DanceID),
		DanceName: row.DanceName,
		Category:  cat,
		State: ir.DanceState{
			Count:       uint8(row.TapCount),
			Pressed:     row.Pressed,
			Interrupted: row.Interrupted,
		},
		Phase: ir.Phase(row.Phase),
	}
	if row.InputKind.Valid {
		kind, err := ir.ParseInputKind(row.InputKind.String)
		if err != nil {
			return ir.TraceEntry{}, fmt.Errorf("unmarshal entry %d: %w", row.Seq, err)
		}
		e.Input = &ir.InputEvent{
			Kind:  kind,
			Key:   ir.KeyPos(row.KeyPos.String),
			Dance: ir.DanceKeyID(row.InputDance.Int64),
			Macro: row.InputMacro.String,
			At:    ir.Millis(row.InputAtMs.Int64),
		}
	}
	if row.Effect.Valid {
		eff, err := ir.ParseEffect(row.Effect.String)
		if err != nil {
			return ir.TraceEntry{}, fmt.Errorf("unmarshal entry %d: %w", row.Seq, err)
		}
		e.Effect = &eff
	}
	return e, nil
}
