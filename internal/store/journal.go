package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/reducer"
)

// Session describes one recorded run.
type Session struct {
	ID             string
	ContentVersion string
	// Base is the serialised state the run started from.
	Base string
	// Entries is the number of journaled actions.
	Entries int64
}

// BeginSession registers a journal session. Beginning an existing session
// is a no-op.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, content_version, base)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.ContentVersion, sess.Base)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", sess.ID, err)
	}
	return nil
}

// AppendJournal records one applied action. Uses ON CONFLICT DO NOTHING
// so that writing the same (session, seq) twice is harmless.
//
// Note: the session must exist (foreign key constraint).
func (s *Store) AppendJournal(ctx context.Context, sessionID string, e engine.JournalEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (session_id, seq, action, fingerprint)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, sessionID, e.Seq, string(e.Action), e.Fingerprint)
	if err != nil {
		return fmt.Errorf("append journal seq=%d: %w", e.Seq, err)
	}
	return nil
}

// ReadJournal returns a session's entries in seq order.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadJournal(ctx context.Context, sessionID string) ([]engine.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, action, fingerprint
		FROM journal
		WHERE session_id = ?
		ORDER BY seq ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []engine.JournalEntry{}
	for rows.Next() {
		var (
			e      engine.JournalEntry
			action string
		)
		if err := rows.Scan(&e.Seq, &action, &e.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Action = json.RawMessage(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// Session returns the session with the given ID.
func (s *Store) Session(ctx context.Context, id string) (Session, bool, error) {
	row := s.db.QueryRowContext(ctx, sessionQuery+`
		WHERE s.id = ?
		GROUP BY s.id
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, true, nil
}

// Sessions lists every session ordered by ID. Session IDs are UUIDv7, so
// this is also start order.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, sessionQuery+`
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

const sessionQuery = `
	SELECT s.id, s.content_version, s.base, COUNT(j.id)
	FROM sessions s
	LEFT JOIN journal j ON j.session_id = s.id
`

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.ContentVersion, &sess.Base, &sess.Entries)
	return sess, err
}

// Recorder journals a Runner's transitions into a Store under one
// session. It implements engine.Recorder.
type Recorder struct {
	store          *Store
	sessionID      string
	contentVersion string
}

// NewRecorder creates a recorder writing to sessionID.
func NewRecorder(st *Store, sessionID, contentVersion string) *Recorder {
	return &Recorder{store: st, sessionID: sessionID, contentVersion: contentVersion}
}

// SessionID returns the session the recorder writes to.
func (r *Recorder) SessionID() string { return r.sessionID }

// Begin implements engine.Recorder.
func (r *Recorder) Begin(ctx context.Context, base string) error {
	return r.store.BeginSession(ctx, Session{
		ID:             r.sessionID,
		ContentVersion: r.contentVersion,
		Base:           base,
	})
}

// Record implements engine.Recorder.
func (r *Recorder) Record(ctx context.Context, seq int64, a reducer.Action, fingerprint string) error {
	data, err := reducer.EncodeAction(a)
	if err != nil {
		return err
	}
	return r.store.AppendJournal(ctx, r.sessionID, engine.JournalEntry{
		Seq:         seq,
		Action:      json.RawMessage(data),
		Fingerprint: fingerprint,
	})
}

var _ engine.Recorder = (*Recorder)(nil)
