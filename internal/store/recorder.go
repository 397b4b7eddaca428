package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tapdance/internal/ir"
)

// Recorder writes every observed trace entry to one session. It implements
// engine.Observer.
//
// Observe has no error return, so the first write failure is kept and
// later entries are dropped. Callers check Err after the run.
type Recorder struct {
	ctx     context.Context
	store   *Store
	session ir.Session
	logger  *slog.Logger
	written int
	err     error
}

// NewRecorder creates the session record and returns a recorder for it.
func NewRecorder(ctx context.Context, st *Store, sess ir.Session) (*Recorder, error) {
	if err := st.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	return &Recorder{
		ctx:     ctx,
		store:   st,
		session: sess,
		logger:  slog.Default(),
	}, nil
}

// SetLogger replaces the default logger.
func (r *Recorder) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Observe appends the entry to the session.
func (r *Recorder) Observe(entry ir.TraceEntry) {
	if r.err != nil {
		return
	}
	if err := r.store.WriteEntry(r.ctx, r.session.ID, entry); err != nil {
		r.err = err
		r.logger.Error("recording stopped",
			"session", r.session.ID,
			"seq", entry.Seq,
			"error", err)
		return
	}
	r.written++
}

// Session returns the session being recorded.
func (r *Recorder) Session() ir.Session { return r.session }

// Written returns the number of entries stored so far.
func (r *Recorder) Written() int { return r.written }

// Err returns the first write error, if any.
func (r *Recorder) Err() error { return r.err }
