package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapdance/internal/ir"
)

type memoryReader struct {
	session ir.Session
	entries []ir.TraceEntry
}

func (m *memoryReader) ReadSession(_ context.Context, id string) (ir.Session, error) {
	if id != m.session.ID {
		return ir.Session{}, errors.New("session not found")
	}
	return m.session, nil
}

func (m *memoryReader) ReadTrace(_ context.Context, id string) ([]ir.TraceEntry, error) {
	if id != m.session.ID {
		return nil, errors.New("session not found")
	}
	return m.entries, nil
}

func recordSession(t *testing.T) *memoryReader {
	t.Helper()
	table := testTable()
	buf := &TraceBuffer{}
	eng, err := New(table, nil,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithObserver(buf),
		WithTappingTerm(150),
		WithSettleDelay(5))
	require.NoError(t, err)

	eng.HandleAll([]ir.InputEvent{
		ir.Press("k", danceK, 0),
		ir.Release("k", danceK, 40),
		ir.Press("k", danceK, 80),
		ir.Press("j", danceJ, 120),
		ir.Release("k", danceK, 130),
		ir.Release("j", danceJ, 140),
		ir.Tick(400),
		ir.Tick(500),
	})

	return &memoryReader{
		session: ir.Session{
			ID:            "sess-1",
			TableName:     table.Name,
			TableHash:     ir.MustTableHash(table),
			TappingTermMs: 150,
			SettleMs:      5,
			EngineVersion: ir.EngineVersion,
			TraceVersion:  ir.TraceVersion,
		},
		entries: buf.Entries,
	}
}

func TestReplay_Reproduces(t *testing.T) {
	reader := recordSession(t)

	result, err := Replay(context.Background(), reader, "sess-1", testTable(), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.True(t, result.Match(), "replay diverged: %v", result.Err())
	assert.Equal(t, 8, result.Inputs)
	assert.Equal(t, len(reader.entries), len(result.Actual))
}

func TestReplay_DetectsDivergence(t *testing.T) {
	reader := recordSession(t)
	// Pretend the recording saw a different category.
	for i, e := range reader.entries {
		if e.Kind == ir.TraceClassify {
			reader.entries[i].Category = ir.TripleTap
			break
		}
	}

	result, err := Replay(context.Background(), reader, "sess-1", testTable(), WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.False(t, result.Match())
	assert.True(t, IsReplayMismatch(result.Err()))
	assert.Contains(t, result.Mismatch.Expected, "TRIPLE_TAP")
	assert.Contains(t, result.Mismatch.Actual, "DOUBLE_SINGLE_TAP")
}

func TestReplay_TableMismatch(t *testing.T) {
	reader := recordSession(t)
	other := testTable()
	other.Name = "renamed"

	_, err := Replay(context.Background(), reader, "sess-1", other)
	require.Error(t, err)
	assert.True(t, IsConfigError(err, ErrCodeTableMismatch))
}

func TestReplay_UnknownSession(t *testing.T) {
	reader := recordSession(t)
	_, err := Replay(context.Background(), reader, "nope", testTable())
	assert.Error(t, err)
}
