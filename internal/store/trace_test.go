package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/engine"
	"github.com/roach88/tapdance/internal/host"
	"github.com/roach88/tapdance/internal/ir"
)

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	sess := createTestSession(t, s, "sess-1")
	require.NoError(t, s.CreateSession(ctx, sess), "second create is a no-op")

	got, err := s.ReadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestCreateSession_EmptyID(t *testing.T) {
	s := createTestStore(t)
	err := s.CreateSession(context.Background(), ir.Session{})
	assert.Error(t, err)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWriteEntry_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	entries := []ir.TraceEntry{
		inputEntry(1, ir.Press("k", 0, 0)),
		inputEntry(2, ir.Release("k", 0, 50)),
		inputEntry(3, ir.Tick(201)),
		{
			Seq:       4,
			Kind:      ir.TraceClassify,
			At:        201,
			DanceName: "K",
			Category:  ir.SingleTap,
			State:     ir.DanceState{Count: 1},
		},
		effectEntry(5, 201, ir.KeyDown(ir.KC_A)),
		effectEntry(6, 201, ir.LayerOn(3)),
		{Seq: 7, Kind: ir.TraceReset, At: 211, DanceName: "K", Category: ir.SingleTap},
	}
	for _, e := range entries {
		require.NoError(t, s.WriteEntry(ctx, "sess-1", e))
	}

	got, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestWriteEntry_MacroInput(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	layerOn := ir.LayerOn(3)
	entries := []ir.TraceEntry{
		inputEntry(1, ir.PressMacro("f", "FUNC", 0)),
		{
			Seq:       2,
			Kind:      ir.TraceEffect,
			Dance:     ir.NoDance,
			DanceName: "FUNC",
			Phase:     ir.PhaseBegin,
			Effect:    &layerOn,
		},
		inputEntry(3, ir.ReleaseMacro("f", "FUNC", 40)),
	}
	require.NoError(t, s.WriteTrace(ctx, "sess-1", entries))

	got, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	inputs, err := s.ReadInputs(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "FUNC", inputs[0].Macro)

	plain, err := s.DB().QueryContext(ctx, "SELECT COUNT(*) FROM trace_entries WHERE input_macro IS NULL")
	require.NoError(t, err)
	defer plain.Close()
	require.True(t, plain.Next())
	var n int
	require.NoError(t, plain.Scan(&n))
	assert.Equal(t, 1, n, "only the effect row has no macro input")
}

func TestWriteEntry_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	e := inputEntry(1, ir.Press("k", 0, 0))
	require.NoError(t, s.WriteEntry(ctx, "sess-1", e))
	require.NoError(t, s.WriteEntry(ctx, "sess-1", e))

	got, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteEntry_SeqConflict(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	require.NoError(t, s.WriteEntry(ctx, "sess-1", inputEntry(1, ir.Press("k", 0, 0))))
	err := s.WriteEntry(ctx, "sess-1", inputEntry(1, ir.Press("j", 1, 0)))
	assert.Error(t, err, "different entry at the same seq")
}

func TestWriteEntry_UnknownSession(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteEntry(context.Background(), "missing", inputEntry(1, ir.Tick(0)))
	assert.Error(t, err, "foreign key")
}

func TestWriteTrace(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	entries := []ir.TraceEntry{
		inputEntry(1, ir.Press("k", 0, 0)),
		inputEntry(2, ir.Release("k", 0, 20)),
		inputEntry(3, ir.Press("j", 1, 40)),
	}
	require.NoError(t, s.WriteTrace(ctx, "sess-1", entries))

	inputs, err := s.ReadInputs(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []ir.InputEvent{
		ir.Press("k", 0, 0),
		ir.Release("k", 0, 20),
		ir.Press("j", 1, 40),
	}, inputs)
}

func TestWriteTrace_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	entries := []ir.TraceEntry{
		inputEntry(1, ir.Press("k", 0, 0)),
		inputEntry(1, ir.Press("j", 1, 0)),
	}
	require.Error(t, s.WriteTrace(ctx, "sess-1", entries))

	got, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadTrace_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	got, err := s.ReadTrace(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadTrace_OrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.WriteEntry(ctx, "sess-1", inputEntry(seq, ir.Tick(ir.Millis(seq)))))
	}

	got, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestReadTraceKind(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestSession(t, s, "sess-1")

	require.NoError(t, s.WriteTrace(ctx, "sess-1", []ir.TraceEntry{
		inputEntry(1, ir.Tick(0)),
		effectEntry(2, 0, ir.KeyDown(ir.KC_A)),
		effectEntry(3, 0, ir.KeyUp(ir.KC_A)),
	}))

	effects, err := s.ReadTraceKind(ctx, "sess-1", ir.TraceEffect)
	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, ir.KeyDown(ir.KC_A), *effects[0].Effect)
	assert.Equal(t, ir.KeyUp(ir.KC_A), *effects[1].Effect)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	createTestSession(t, s, "b")
	createTestSession(t, s, "a")
	require.NoError(t, s.WriteTrace(ctx, "b", []ir.TraceEntry{
		inputEntry(1, ir.Tick(0)),
		effectEntry(2, 0, ir.KeyDown(ir.KC_A)),
	}))

	list, err = s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, int64(0), list[0].Entries)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, int64(2), list[1].Entries)
	assert.Equal(t, int64(1), list[1].Inputs)
}

func recorderTable() *ir.DanceTable {
	return &ir.DanceTable{
		Name:   "rec",
		Layers: []string{"base", "nav"},
		Dances: []ir.Dance{
			{ID: 0, Name: "K", Actions: ir.ActionTable{
				ir.SingleTap: {
					Begin: []ir.Effect{ir.KeyDown(ir.KC_A)},
					End:   []ir.Effect{ir.KeyUp(ir.KC_A)},
				},
				ir.SingleHold: {
					Begin: []ir.Effect{ir.LayerOn(1)},
					End:   []ir.Effect{ir.LayerOff(1)},
				},
			}},
		},
	}
}

func recordSession(t *testing.T, s *Store, id string, events []ir.InputEvent) *Recorder {
	t.Helper()
	ctx := context.Background()
	table := recorderTable()

	rec, err := NewRecorder(ctx, s, ir.Session{
		ID:            id,
		TableName:     table.Name,
		TableHash:     ir.MustTableHash(table),
		TappingTermMs: uint32(engine.DefaultTappingTerm),
		SettleMs:      uint32(engine.DefaultSettleDelay),
		EngineVersion: ir.EngineVersion,
		TraceVersion:  ir.TraceVersion,
	})
	require.NoError(t, err)

	eng, err := engine.New(table, host.New(),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
		engine.WithObserver(rec))
	require.NoError(t, err)
	eng.HandleAll(events)
	require.NoError(t, rec.Err())
	return rec
}

func TestRecorder_ReplayMatches(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := recordSession(t, s, "sess-1", []ir.InputEvent{
		ir.Press("k", 0, 0),
		ir.Release("k", 0, 50),
		ir.Tick(300),
		ir.Tick(320),
		ir.Press("k", 0, 400),
		ir.Tick(700),
		ir.Release("k", 0, 720),
		ir.Tick(800),
	})
	assert.Positive(t, rec.Written())

	stored, err := s.ReadTrace(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, stored, rec.Written())

	result, err := engine.Replay(ctx, s, "sess-1", recorderTable(),
		engine.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.True(t, result.Match(), "replay mismatch: %v", result.Err())
	assert.Equal(t, 8, result.Inputs)
	assert.Equal(t, ir.FormatTrace(result.Expected), ir.FormatTrace(result.Actual))
}

func TestRecorder_ReplayDetectsTableChange(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	recordSession(t, s, "sess-1", []ir.InputEvent{ir.Press("k", 0, 0), ir.Tick(300)})

	changed := recorderTable()
	changed.Name = "other"
	_, err := engine.Replay(ctx, s, "sess-1", changed)
	require.Error(t, err)
	assert.True(t, engine.IsConfigError(err, engine.ErrCodeTableMismatch))
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec, err := NewRecorder(ctx, s, ir.Session{ID: "sess-1", TableName: "t", TableHash: "h"})
	require.NoError(t, err)
	rec.SetLogger(slog.New(slog.DiscardHandler))

	rec.Observe(inputEntry(1, ir.Tick(0)))
	require.NoError(t, rec.Err())

	require.NoError(t, s.Close())
	rec.Observe(inputEntry(2, ir.Tick(1)))
	rec.Observe(inputEntry(3, ir.Tick(2)))

	assert.Error(t, rec.Err())
	assert.Equal(t, 1, rec.Written())
}
