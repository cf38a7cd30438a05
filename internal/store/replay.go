package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/engine"
)

// ReplayReport is the result of feeding a captured session through a fresh
// engine.
type ReplayReport struct {
	Session       Session
	Notifications int
	Gaps          int // notifications preceded by a capture gap
	Replayed      []RecordedOutcome
	Recorded      []RecordedOutcome
	Mismatches    []Mismatch
}

// Mismatch is a position where replayed and recorded outcomes differ.
// A nil side means that list ran out first.
type Mismatch struct {
	Index    int
	Replayed *RecordedOutcome
	Recorded *RecordedOutcome
}

func (m Mismatch) String() string {
	side := func(r *RecordedOutcome) string {
		if r == nil {
			return "<none>"
		}
		return fmt.Sprintf("seq %d %s", r.Seq, r.Outcome)
	}
	return fmt.Sprintf("#%d: replayed %s, recorded %s", m.Index, side(m.Replayed), side(m.Recorded))
}

// Verified reports whether replay reproduced the recorded outcomes exactly.
func (r *ReplayReport) Verified() bool {
	return len(r.Mismatches) == 0
}

// Replay reads a session's notifications and publishes them, in seq order,
// on a fresh bus consumed by a fresh engine. Replayed outcomes carry the
// captured seq of the notification that completed them and are compared
// with the outcomes recorded during capture.
func Replay(ctx context.Context, s *Store, sessionID string, logger *slog.Logger, opts ...engine.Option) (*ReplayReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	notes, err := s.ReadNotifications(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	recorded, err := s.ReadOutcomes(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{
		Session:       sess,
		Notifications: len(notes),
		Recorded:      recorded,
		Replayed:      []RecordedOutcome{},
	}

	// Every notification fits in the buffer, so replay never drops.
	b := bus.New(bus.WithSubscriberBuffer(len(notes) + 1))
	sub := b.Subscribe()

	hook := func(seq int64, o engine.Outcome) {
		// Bus seq n is the n-th captured notification.
		captured := seq
		if seq >= 1 && int(seq) <= len(notes) {
			captured = notes[seq-1].Seq
		}
		report.Replayed = append(report.Replayed, RecordedOutcome{SessionID: sessionID, Seq: captured, Outcome: o})
	}
	opts = append(opts, engine.WithLogger(logger), engine.WithOutcomeHook(hook))
	eng := engine.New(engine.NewSink(), opts...)

	for _, n := range notes {
		if n.Missed > 0 {
			report.Gaps++
			logger.Warn("captured session has a gap", "seq", n.Seq, "missed", n.Missed)
		}
		b.Publish(n.Event)
	}
	b.Close()

	if err := eng.Run(ctx, sub); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report.Mismatches = compareOutcomes(report.Replayed, report.Recorded)
	return report, nil
}

func compareOutcomes(replayed, recorded []RecordedOutcome) []Mismatch {
	var out []Mismatch
	n := max(len(replayed), len(recorded))
	for i := 0; i < n; i++ {
		var a, b *RecordedOutcome
		if i < len(replayed) {
			a = &replayed[i]
		}
		if i < len(recorded) {
			b = &recorded[i]
		}
		if a != nil && b != nil && a.Seq == b.Seq && a.Outcome.Equal(b.Outcome) {
			continue
		}
		out = append(out, Mismatch{Index: i, Replayed: a, Recorded: b})
	}
	return out
}
