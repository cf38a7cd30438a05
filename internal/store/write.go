package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/notify"
)

// Session is one monitor run.
type Session struct {
	ID        string
	StartedAt time.Time
	Adapter   string
	Interface string

	// Populated by ListSessions.
	Notifications int
	Outcomes      int
}

// Notification is a captured bus delivery.
type Notification struct {
	SessionID string
	Seq       int64
	Missed    int
	Source    notify.Source
	Code      uint32
	Kind      string
	Payload   string
	Event     notify.Event
}

// RecordedOutcome is an outcome with the seq of the notification that
// completed it.
type RecordedOutcome struct {
	SessionID string
	Seq       int64
	Outcome   engine.Outcome
}

// OpenSession inserts a new session with a time-ordered UUIDv7 id.
func (s *Store) OpenSession(ctx context.Context, adapter, iface string, startedAt time.Time) (Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("open session: %w", err)
	}
	sess := Session{
		ID:        id.String(),
		StartedAt: startedAt.UTC(),
		Adapter:   adapter,
		Interface: iface,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, adapter, interface)
		VALUES (?, ?, ?, ?)
	`,
		sess.ID,
		sess.StartedAt.Format(time.RFC3339Nano),
		sess.Adapter,
		sess.Interface,
	)
	if err != nil {
		return Session{}, fmt.Errorf("open session: %w", err)
	}
	return sess, nil
}

// WriteNotification appends a delivery to the session log.
// Uses ON CONFLICT DO NOTHING for idempotency - a seq already captured for
// the session is silently ignored.
func (s *Store) WriteNotification(ctx context.Context, sessionID string, seq int64, missed int, ev notify.Event) error {
	payload, err := marshalPayload(ev)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
		(session_id, seq, source, code, kind, payload, missed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sessionID,
		seq,
		uint32(notify.SourceOf(ev)),
		ev.Discriminant().Subtype,
		ev.Discriminant().String(),
		payload,
		missed,
	)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// WriteOutcome appends an outcome to the session log.
// Uses ON CONFLICT DO NOTHING for idempotency.
func (s *Store) WriteOutcome(ctx context.Context, sessionID string, seq int64, o engine.Outcome) error {
	notes, err := marshalNotes(o.Notes)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes (session_id, seq, kind, result, notes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		sessionID,
		seq,
		o.Kind.String(),
		o.Result.String(),
		notes,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}
