package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tapdance/internal/ir"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a session with fixed parameters.
func createTestSession(t *testing.T, s *Store, id string) ir.Session {
	t.Helper()
	sess := ir.Session{
		ID:            id,
		TableName:     "test",
		TableHash:     "test-hash",
		TappingTermMs: 200,
		SettleMs:      10,
		EngineVersion: ir.EngineVersion,
		TraceVersion:  ir.TraceVersion,
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

func inputEntry(seq int64, ev ir.InputEvent) ir.TraceEntry {
	return ir.TraceEntry{Seq: seq, Kind: ir.TraceInput, At: ev.At, Input: &ev, Dance: ev.Dance}
}

func effectEntry(seq int64, at ir.Millis, eff ir.Effect) ir.TraceEntry {
	return ir.TraceEntry{
		Seq:       seq,
		Kind:      ir.TraceEffect,
		At:        at,
		DanceName: "K",
		Category:  ir.SingleTap,
		State:     ir.DanceState{Count: 1},
		Phase:     ir.PhaseBegin,
		Effect:    &eff,
	}
}
