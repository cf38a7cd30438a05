package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/notify"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// GetSession returns a single session without counts.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, adapter, interface
		FROM sessions
		WHERE id = ?
	`, id)

	var sess Session
	var started string
	if err := row.Scan(&sess.ID, &started, &sess.Adapter, &sess.Interface); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Session{}, fmt.Errorf("parse started_at: %w", err)
	}
	sess.StartedAt = t
	return sess, nil
}

// ListSessions returns all sessions with their row counts, oldest first.
// UUIDv7 ids sort by creation time, so ordering by id is chronological.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.started_at, s.adapter, s.interface,
		       (SELECT COUNT(*) FROM notifications n WHERE n.session_id = s.id),
		       (SELECT COUNT(*) FROM outcomes o WHERE o.session_id = s.id)
		FROM sessions s
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var started string
		if err := rows.Scan(&sess.ID, &started, &sess.Adapter, &sess.Interface, &sess.Notifications, &sess.Outcomes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		sess.StartedAt = t
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadNotifications returns the captured notifications of a session in seq
// order, with each payload decoded back into an Event.
//
// Returns an empty slice (not nil) if nothing was captured.
func (s *Store) ReadNotifications(ctx context.Context, sessionID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, source, code, kind, payload, missed
		FROM notifications
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n := Notification{SessionID: sessionID}
		var source uint32
		if err := rows.Scan(&n.Seq, &source, &n.Code, &n.Kind, &n.Payload, &n.Missed); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Source = notify.Source(source)

		ev, err := notify.FromFields(n.Source, n.Code, []byte(n.Payload))
		if err != nil {
			return nil, fmt.Errorf("notification seq %d: %w", n.Seq, err)
		}
		n.Event = ev
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// ReadOutcomes returns the recorded outcomes of a session in seq order.
//
// Returns an empty slice (not nil) if none were recorded.
func (s *Store) ReadOutcomes(ctx context.Context, sessionID string) ([]RecordedOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, result, notes
		FROM outcomes
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := []RecordedOutcome{}
	for rows.Next() {
		r := RecordedOutcome{SessionID: sessionID}
		var kind, result, notes string
		if err := rows.Scan(&r.Seq, &kind, &result, &notes); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if r.Outcome.Kind, err = engine.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("outcome seq %d: %w", r.Seq, err)
		}
		if r.Outcome.Result, err = engine.ParseResult(result); err != nil {
			return nil, fmt.Errorf("outcome seq %d: %w", r.Seq, err)
		}
		if r.Outcome.Notes, err = unmarshalNotes(notes); err != nil {
			return nil, fmt.Errorf("outcome seq %d: %w", r.Seq, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}
